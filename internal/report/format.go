// Package report turns snapshots into display strings and CSV exports.
package report

import (
	"fmt"
	"strings"
	"time"

	"SP500Tracker/internal/model"
)

// EmptyMessage is shown when a cycle produced no rows.
const EmptyMessage = "Failed to load stock data. Please try refreshing."

// Row is one snapshot row with display strings next to the raw values.
type Row struct {
	model.InstrumentMetrics
	Price        string
	Change       string
	High         string
	RateOfChange string
}

// Price formats a currency value, e.g. $123.45.
func Price(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// Percent formats a signed percentage, e.g. +1.23%.
func Percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// Rows returns display rows in snapshot order.
func Rows(s *model.Snapshot) []Row {
	if s == nil {
		return nil
	}
	out := make([]Row, len(s.Rows))
	for i, m := range s.Rows {
		out[i] = Row{
			InstrumentMetrics: m,
			Price:             Price(m.CurrentPrice),
			Change:            Percent(m.PercentChangeDaily),
			High:              Price(m.WindowHigh),
			RateOfChange:      Percent(m.WindowRateOfChange),
		}
	}
	return out
}

// Headline is the regime banner text.
func Headline(r model.Regime) string {
	switch r {
	case model.RegimeUp:
		return "Market Regime: UP - S&P 500 UP Today"
	case model.RegimeDown:
		return "Market Regime: DOWN - S&P 500 DOWN Today"
	case model.RegimeFlat:
		return "Market Regime: FLAT - S&P 500 Unchanged Today"
	default:
		return fmt.Sprintf("Market Regime: %s", model.RegimeUnknown)
	}
}

// StatusLine reports when the snapshot was taken and how many instruments failed.
func StatusLine(s *model.Snapshot) string {
	if s == nil {
		return "Not loaded yet"
	}
	var b strings.Builder
	b.WriteString("Last updated: ")
	b.WriteString(s.FinishedAt.Format(time.DateTime))
	b.WriteString(fmt.Sprintf(" | Failed to load: %d stocks", s.Failed))
	return b.String()
}

// FileName is the download name for an export taken at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("sp500_stocks_%s.csv", t.Format("20060102_1504"))
}
