package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SP500Tracker/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu        sync.Mutex
	Histories map[string]model.PriceHistory
	Errors    map[string][]error // consumed in order before the history is returned
	BasePrice float64            // used to synthesise bars for unknown symbols; 0 means unknown symbols fail
	calls     map[string]int
}

// NewMockFetcher creates a MockFetcher that synthesises a rising series around basePrice.
func NewMockFetcher(basePrice float64) *MockFetcher {
	return &MockFetcher{
		Histories: map[string]model.PriceHistory{},
		Errors:    map[string][]error{},
		BasePrice: basePrice,
	}
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func (m *MockFetcher) FetchHistory(ctx context.Context, symbol, rng string) (model.PriceHistory, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceHistory{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[symbol]++

	if errs := m.Errors[symbol]; len(errs) > 0 {
		err := errs[0]
		m.Errors[symbol] = errs[1:]
		return model.PriceHistory{}, err
	}
	if h, ok := m.Histories[symbol]; ok {
		return h, nil
	}
	if m.BasePrice <= 0 {
		return model.PriceHistory{}, fmt.Errorf("mock: symbol %s not found", symbol)
	}
	return model.PriceHistory{
		Symbol: symbol,
		Bars:   GenerateMockBars(m.BasePrice, rangeDays(rng)),
	}, nil
}

// GenerateMockBars builds count daily bars drifting upwards from basePrice.
func GenerateMockBars(basePrice float64, count int) []model.PriceBar {
	bars := make([]model.PriceBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.PriceBar{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
