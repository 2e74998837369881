package model

import (
	"errors"
	"strings"
	"time"
)

// ErrNoCompanyName is returned when the market-data source carried no company metadata.
var ErrNoCompanyName = errors.New("no company name")

// PriceBar represents a single trading session.
type PriceBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceHistory holds the chronological bars for one instrument.
type PriceHistory struct {
	Symbol   string
	LongName string // best-effort, may be empty
	Bars     []PriceBar
}

// Len returns the number of bars.
func (h PriceHistory) Len() int { return len(h.Bars) }

// Company returns the company name reported by the data source.
func (h PriceHistory) Company() (string, error) {
	name := strings.TrimSpace(h.LongName)
	if name == "" {
		return "", ErrNoCompanyName
	}
	return name, nil
}

// Constituent is one entry of the instrument universe.
type Constituent struct {
	Symbol string
	Name   string
}

// NormalizeSymbol converts listing symbols (BRK.B) to the market-data form (BRK-B).
func NormalizeSymbol(symbol string) string {
	return strings.ReplaceAll(strings.TrimSpace(symbol), ".", "-")
}
