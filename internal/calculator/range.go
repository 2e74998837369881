package calculator

import (
	"math"

	"SP500Tracker/internal/model"
)

// DefaultWindowBars is roughly twenty weeks of trading sessions.
const DefaultWindowBars = 100

// DefaultMinBars is the sufficiency threshold for the windowed rate of change.
const DefaultMinBars = 50

// Window configures the trailing window used for the high and the rate of change.
type Window struct {
	Bars    int // trailing window length
	MinBars int // sufficiency threshold for the rate of change
}

// DefaultWindow returns a 100-bar window with a 50-bar sufficiency threshold.
func DefaultWindow() Window {
	return Window{Bars: DefaultWindowBars, MinBars: DefaultMinBars}
}

// Trailing returns the most recent min(n, len(bars)) bars.
func Trailing(bars []model.PriceBar, n int) []model.PriceBar {
	if n <= 0 || len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}

// WindowHigh returns the highest High in the given bars.
func WindowHigh(bars []model.PriceBar) (float64, error) {
	if len(bars) == 0 {
		return 0, ErrNoData
	}
	high := math.Inf(-1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
	}
	return high, nil
}

// RateOfChange returns the percent change from the first close of the window to current.
// Windows shorter than minBars yield 0.
func RateOfChange(window []model.PriceBar, current float64, minBars int) float64 {
	if len(window) == 0 || len(window) < minBars {
		return 0
	}
	return PercentChange(window[0].Close, current)
}
