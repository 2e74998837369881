package collector

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"SP500Tracker/internal/cache"
	"SP500Tracker/internal/calculator"
	"SP500Tracker/internal/metrics"
	"SP500Tracker/internal/model"
	"SP500Tracker/internal/retry"
)

// Options tunes one refresh cycle.
type Options struct {
	ReferenceSymbol string
	HistoryRange    string
	ReferenceRange  string
	Window          calculator.Window
	RegimeThreshold float64
	Workers         int           // upstream requests in flight at once
	RequestInterval time.Duration // minimum gap between one request finishing and the next starting
	Retry           retry.Policy
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		ReferenceSymbol: "SPY",
		HistoryRange:    "6mo",
		ReferenceRange:  "5d",
		Window:          calculator.DefaultWindow(),
		RegimeThreshold: calculator.DefaultRegimeThreshold,
		Workers:         1,
		RequestInterval: 50 * time.Millisecond,
		Retry:           retry.DefaultPolicy(),
	}
}

// Collector runs refresh cycles: regime, universe, then every instrument.
type Collector struct {
	Fetcher  Fetcher
	Universe Universe
	Cache    *cache.Memo

	opts    Options
	limiter *rate.Limiter
	log     zerolog.Logger
	now     func() time.Time
}

// NewCollector creates a new Collector. memo may be nil to disable memoisation.
func NewCollector(fetcher Fetcher, universe Universe, memo *cache.Memo, opts Options, log zerolog.Logger) *Collector {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Window.Bars <= 0 {
		opts.Window = calculator.DefaultWindow()
	}
	limit := rate.Inf
	if opts.RequestInterval > 0 {
		limit = rate.Every(opts.RequestInterval)
	}
	return &Collector{
		Fetcher:  fetcher,
		Universe: universe,
		Cache:    memo,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		log:      log.With().Str("component", "collector").Logger(),
		now:      time.Now,
	}
}

// Refresh runs one full cycle for the first count constituents (all when count <= 0).
// Per-instrument failures are counted and skipped; only ctx cancellation is returned as an error,
// in which case partial rows are discarded.
func (c *Collector) Refresh(ctx context.Context, count int) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		ID:        uuid.NewString(),
		StartedAt: c.now(),
	}
	log := c.log.With().Str("cycle", snap.ID).Logger()

	// The regime is fixed before any row is labelled with it.
	snap.Regime = c.Regime(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	universe := c.constituents(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count > 0 && len(universe) > count {
		universe = universe[:count]
	}
	snap.Requested = len(universe)
	log.Info().Int("instruments", snap.Requested).Str("regime", string(snap.Regime)).Msg("refresh started")

	rows := make([]*model.InstrumentMetrics, len(universe))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, cst := range universe {
		g.Go(func() error {
			m, err := c.Instrument(gctx, cst.Symbol, snap.Regime)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				metrics.InstrumentsFailed.Inc()
				log.Warn().Err(err).Str("symbol", cst.Symbol).Msg("instrument skipped")
				return nil
			}
			rows[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("refresh abandoned")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap.Rows = make([]model.InstrumentMetrics, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			snap.Rows = append(snap.Rows, *r)
		}
	}
	SortByRateOfChange(snap.Rows)
	snap.Failed = int(failed.Load())
	snap.FinishedAt = c.now()

	log.Info().
		Int("processed", len(snap.Rows)).
		Int("failed", snap.Failed).
		Dur("elapsed", snap.FinishedAt.Sub(snap.StartedAt)).
		Msg("refresh finished")
	return snap, nil
}

// Regime classifies the reference index. Any failure yields RegimeUnknown.
func (c *Collector) Regime(ctx context.Context) model.Regime {
	sym, rng := c.opts.ReferenceSymbol, c.opts.ReferenceRange
	regime, err := cache.Remember(c.Cache, cache.Key("regime", sym, rng), func() (model.Regime, error) {
		h, err := c.fetch(ctx, sym, rng)
		if err != nil {
			return model.RegimeUnknown, err
		}
		return calculator.ClassifyRegime(h, c.opts.RegimeThreshold), nil
	})
	if err != nil {
		c.log.Error().Err(err).Str("symbol", sym).Msg("regime unavailable")
		return model.RegimeUnknown
	}
	return regime
}

// Instrument fetches one symbol through the retry policy and derives its row.
func (c *Collector) Instrument(ctx context.Context, symbol string, regime model.Regime) (*model.InstrumentMetrics, error) {
	h, err := c.fetch(ctx, symbol, c.opts.HistoryRange)
	if err != nil {
		return nil, err
	}
	if h.Symbol == "" {
		h.Symbol = symbol
	}
	m, err := calculator.DeriveMetrics(h, regime, c.opts.Window)
	if err != nil {
		return nil, fmt.Errorf("derive %s: %w", symbol, err)
	}
	return m, nil
}

func (c *Collector) constituents(ctx context.Context) []model.Constituent {
	if c.Universe == nil {
		return FallbackUniverse()
	}
	list, err := cache.Remember(c.Cache, cache.Key("universe"), func() ([]model.Constituent, error) {
		return c.Universe.Constituents(ctx)
	})
	if err != nil {
		c.log.Error().Err(err).Msg("universe unavailable, using fallback list")
		return FallbackUniverse()
	}
	return list
}

// fetch is the only place upstream calls are retried.
func (c *Collector) fetch(ctx context.Context, symbol, rng string) (model.PriceHistory, error) {
	policy := c.opts.Retry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		metrics.FetchRetries.Inc()
		c.log.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt+1).Dur("backoff", delay).Msg("rate limited, backing off")
	}
	return retry.Do(ctx, policy, func(ctx context.Context) (model.PriceHistory, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.PriceHistory{}, err
		}
		// Taking a token on completion pushes the next start past now + RequestInterval.
		defer c.limiter.Reserve()
		return c.Fetcher.FetchHistory(ctx, symbol, rng)
	})
}

// SortByRateOfChange orders rows by windowed rate of change, highest first, then by symbol.
func SortByRateOfChange(rows []model.InstrumentMetrics) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].WindowRateOfChange != rows[j].WindowRateOfChange {
			return rows[i].WindowRateOfChange > rows[j].WindowRateOfChange
		}
		return rows[i].Symbol < rows[j].Symbol
	})
}
