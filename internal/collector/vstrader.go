package collector

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"SP500Tracker/internal/model"
)

// VsTraderFetcher implements Fetcher using the vstrader REST API.
type VsTraderFetcher struct {
	client *resty.Client
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string) *VsTraderFetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &VsTraderFetcher{client: client}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type vsProfile struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func (f *VsTraderFetcher) FetchHistory(ctx context.Context, symbol, rng string) (model.PriceHistory, error) {
	var vsBars []vsBar
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"limit":  strconv.Itoa(rangeDays(rng)),
		}).
		SetResult(&vsBars).
		Get("/api/v1/bars/daily")
	if err != nil {
		return model.PriceHistory{}, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}
	if err := statusError("vstrader", symbol, resp); err != nil {
		return model.PriceHistory{}, err
	}
	if len(vsBars) == 0 {
		return model.PriceHistory{}, fmt.Errorf("vstrader: empty history for %s", symbol)
	}

	bars := make([]model.PriceBar, len(vsBars))
	for i, vb := range vsBars {
		bars[i] = model.PriceBar{
			Time:   time.Unix(vb.Timestamp, 0).UTC(),
			Open:   vb.Open,
			High:   vb.High,
			Low:    vb.Low,
			Close:  vb.Close,
			Volume: vb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	h := model.PriceHistory{Symbol: symbol, Bars: bars}
	if name, err := f.fetchName(ctx, symbol); err == nil {
		h.LongName = name
	}
	return h, nil
}

// fetchName is best-effort; callers fall back to the symbol.
func (f *VsTraderFetcher) fetchName(ctx context.Context, symbol string) (string, error) {
	var p vsProfile
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&p).
		Get("/api/v1/profile")
	if err != nil {
		return "", fmt.Errorf("fetch profile %s: %w", symbol, err)
	}
	if err := statusError("vstrader", symbol, resp); err != nil {
		return "", err
	}
	if p.Name == "" {
		return "", model.ErrNoCompanyName
	}
	return p.Name, nil
}
