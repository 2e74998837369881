package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"SP500Tracker/internal/model"
)

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		FinishedAt: time.Date(2024, 6, 3, 14, 5, 9, 0, time.Local),
		Regime:     model.RegimeDown,
		Failed:     3,
		Rows: []model.InstrumentMetrics{
			{Symbol: "NVDA", CompanyName: "NVIDIA Corporation", CurrentPrice: 1150.5, PercentChangeDaily: 2.345,
				WindowHigh: 1200, WindowRateOfChange: 45.678, Regime: model.RegimeDown},
			{Symbol: "BRK-B", CompanyName: "Berkshire Hathaway, Inc.", CurrentPrice: 410.1, PercentChangeDaily: -0.5,
				WindowHigh: 420.999, WindowRateOfChange: 0, Regime: model.RegimeDown},
		},
	}
}

func TestPriceAndPercent(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{Price(123.456), "$123.46"},
		{Price(0), "$0.00"},
		{Percent(1.234), "+1.23%"},
		{Percent(-0.5), "-0.50%"},
		{Percent(0), "+0.00%"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestRows_KeepsRawValues(t *testing.T) {
	rows := Rows(sampleSnapshot())
	if len(rows) != 2 {
		t.Fatalf("rows=%d", len(rows))
	}
	if rows[0].RateOfChange != "+45.68%" || rows[0].WindowRateOfChange != 45.678 {
		t.Errorf("row[0]=%+v", rows[0])
	}
	if rows[1].Change != "-0.50%" || rows[1].High != "$421.00" {
		t.Errorf("row[1]=%+v", rows[1])
	}
	if Rows(nil) != nil {
		t.Error("Rows(nil) should be nil")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleSnapshot()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want header plus 2", len(records))
	}
	if strings.Join(records[0], ",") != "Company,Ticker,Current Price,Price Change %,20-Week High,20-Week Rate of Change %,Regime" {
		t.Errorf("header=%v", records[0])
	}
	want := []string{"Berkshire Hathaway, Inc.", "BRK-B", "$410.10", "-0.50%", "$421.00", "+0.00%", "DOWN"}
	for i, v := range want {
		if records[2][i] != v {
			t.Errorf("record[2][%d]=%q, want %q", i, records[2][i], v)
		}
	}
	if records[1][1] != "NVDA" {
		t.Errorf("first data row=%v, want NVDA", records[1])
	}
}

func TestWriteCSV_EmptySnapshot(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("expected header only, got %q", buf.String())
	}
}

func TestFileName(t *testing.T) {
	got := FileName(time.Date(2024, 1, 9, 7, 3, 0, 0, time.UTC))
	if got != "sp500_stocks_20240109_0703.csv" {
		t.Fatalf("FileName=%q", got)
	}
}

func TestHeadline(t *testing.T) {
	if got := Headline(model.RegimeUp); !strings.Contains(got, "S&P 500 UP Today") {
		t.Errorf("UP headline=%q", got)
	}
	if got := Headline(model.RegimeFlat); !strings.Contains(got, "Unchanged") {
		t.Errorf("FLAT headline=%q", got)
	}
	if got := Headline(model.RegimeUnknown); got != "Market Regime: UNKNOWN" {
		t.Errorf("UNKNOWN headline=%q", got)
	}
}

func TestStatusLine(t *testing.T) {
	got := StatusLine(sampleSnapshot())
	if got != "Last updated: 2024-06-03 14:05:09 | Failed to load: 3 stocks" {
		t.Fatalf("StatusLine=%q", got)
	}
}
