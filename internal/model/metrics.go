package model

// Regime is the coarse daily direction of the reference index.
type Regime string

const (
	RegimeUp      Regime = "UP"
	RegimeDown    Regime = "DOWN"
	RegimeFlat    Regime = "FLAT"
	RegimeUnknown Regime = "UNKNOWN"
)

// InstrumentMetrics holds the derived values for one instrument in one refresh cycle.
type InstrumentMetrics struct {
	Symbol             string
	CompanyName        string
	CurrentPrice       float64
	PercentChangeDaily float64
	WindowHigh         float64
	WindowRateOfChange float64 // 0 when the window is below the sufficiency threshold
	Regime             Regime
}
