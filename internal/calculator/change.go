package calculator

import (
	"errors"

	"SP500Tracker/internal/model"
)

// ErrNoData is returned when a history has no bars.
var ErrNoData = errors.New("no price data")

// PercentChange returns (to - from) / from * 100, or 0 when from is zero.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

// LastTwoCloses returns the latest close and the one before it.
// With a single bar the previous close equals the current one.
func LastTwoCloses(bars []model.PriceBar) (current, previous float64, err error) {
	n := len(bars)
	if n == 0 {
		return 0, 0, ErrNoData
	}
	current = bars[n-1].Close
	previous = current
	if n >= 2 {
		previous = bars[n-2].Close
	}
	return current, previous, nil
}

func extractCloses(bars []model.PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
