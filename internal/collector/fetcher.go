package collector

import (
	"context"
	"fmt"

	"SP500Tracker/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchHistory returns the daily bars for symbol over a Yahoo-style range ("5d", "6mo", "1y").
	FetchHistory(ctx context.Context, symbol, rng string) (model.PriceHistory, error)
	Name() string
}

// SourceConfig selects and configures a market-data source.
// Each provider reads only its own endpoint.
type SourceConfig struct {
	Provider    string // yahoo | vstrader | mock
	YahooURL    string // empty uses DefaultYahooBaseURL
	VsTraderURL string
	APIKey      string
	Proxy       string
}

// NewFetcher builds the Fetcher named by cfg.Provider.
func NewFetcher(cfg SourceConfig) (Fetcher, error) {
	switch cfg.Provider {
	case "", "yahoo":
		return NewYahooFetcher(cfg.YahooURL, cfg.Proxy), nil
	case "vstrader":
		if cfg.VsTraderURL == "" {
			return nil, fmt.Errorf("vstrader: base url is required")
		}
		return NewVsTraderFetcher(cfg.VsTraderURL, cfg.APIKey, cfg.Proxy), nil
	case "mock":
		return NewMockFetcher(100), nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.Provider)
	}
}

// rangeDays maps a Yahoo-style range to an approximate count of trading days.
func rangeDays(rng string) int {
	switch rng {
	case "1d":
		return 1
	case "5d":
		return 5
	case "1mo":
		return 22
	case "3mo":
		return 63
	case "6mo":
		return 126
	case "1y":
		return 252
	case "2y":
		return 504
	case "5y":
		return 1260
	default:
		return 126
	}
}
