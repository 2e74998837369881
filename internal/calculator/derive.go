package calculator

import (
	"SP500Tracker/internal/model"
)

// DeriveMetrics computes the per-instrument row from its price history.
// An empty history returns ErrNoData.
func DeriveMetrics(h model.PriceHistory, regime model.Regime, w Window) (*model.InstrumentMetrics, error) {
	current, previous, err := LastTwoCloses(h.Bars)
	if err != nil {
		return nil, err
	}
	if w.Bars <= 0 {
		w.Bars = DefaultWindowBars
	}

	window := Trailing(h.Bars, w.Bars)
	high, err := WindowHigh(window)
	if err != nil {
		return nil, err
	}

	name, err := h.Company()
	if err != nil {
		name = h.Symbol
	}

	return &model.InstrumentMetrics{
		Symbol:             h.Symbol,
		CompanyName:        name,
		CurrentPrice:       current,
		PercentChangeDaily: PercentChange(previous, current),
		WindowHigh:         high,
		WindowRateOfChange: RateOfChange(window, current, w.MinBars),
		Regime:             regime,
	}, nil
}
