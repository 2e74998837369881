package calculator

import (
	"SP500Tracker/internal/model"
)

// DefaultRegimeThreshold is the minimum absolute daily change, in percent, for UP or DOWN.
const DefaultRegimeThreshold = 0.1

// ClassifyRegime labels the reference index by its last daily change.
// Fewer than two bars yields RegimeUnknown.
func ClassifyRegime(h model.PriceHistory, threshold float64) model.Regime {
	if len(h.Bars) < 2 {
		return model.RegimeUnknown
	}
	closes := extractCloses(h.Bars[len(h.Bars)-2:])
	change := PercentChange(closes[0], closes[1])
	switch {
	case change > threshold:
		return model.RegimeUp
	case change < -threshold:
		return model.RegimeDown
	default:
		return model.RegimeFlat
	}
}
