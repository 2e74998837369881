package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"SP500Tracker/internal/model"
)

// CSVHeader is the column order of the export.
var CSVHeader = []string{
	"Company", "Ticker", "Current Price", "Price Change %",
	"20-Week High", "20-Week Rate of Change %", "Regime",
}

// WriteCSV writes one line per row of s, in snapshot order.
func WriteCSV(w io.Writer, s *model.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range Rows(s) {
		if err := cw.Write([]string{
			r.CompanyName, r.Symbol, r.Price, r.Change, r.High, r.RateOfChange, string(r.Regime),
		}); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Symbol, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
