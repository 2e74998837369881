package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SP500Tracker/internal/cache"
	"SP500Tracker/internal/config"
	"SP500Tracker/internal/metrics"
	"SP500Tracker/internal/model"
	"SP500Tracker/internal/notifier"
	"SP500Tracker/internal/recorder"
)

var (
	// ErrBusy is returned by scheduled runs when a cycle is already in flight.
	ErrBusy = errors.New("refresh already running")
	// ErrStopped is returned by RefreshNow and Run after Stop.
	ErrStopped = errors.New("scheduler stopped")
)

// Refresher runs one refresh cycle.
type Refresher interface {
	Refresh(ctx context.Context, count int) (*model.Snapshot, error)
}

type cycle struct {
	cancel context.CancelFunc
}

// Scheduler owns the refresh lifecycle: periodic ticks, manual refreshes and the latest snapshot.
type Scheduler struct {
	Cron      *cron.Cron
	Collector Refresher
	Cache     *cache.Memo
	Recorder  recorder.Recorder
	Notifier  notifier.Sender // optional regime-change alerts
	AlertTop  int             // rows listed in an alert

	ctx context.Context
	log zerolog.Logger

	mu       sync.Mutex
	latest   *model.Snapshot
	inflight *cycle
	auto     bool
	count    int
	stopped  bool

	runMu sync.Mutex // one cycle at a time
	bg    sync.WaitGroup
}

// NewScheduler creates a new Scheduler. ctx bounds every cycle it starts.
func NewScheduler(ctx context.Context, col Refresher, memo *cache.Memo, rec recorder.Recorder, stockCount int, autoRefresh bool, log zerolog.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Cache:     memo,
		Recorder:  rec,
		ctx:       ctx,
		log:       log.With().Str("component", "scheduler").Logger(),
		AlertTop:  5,
		auto:      autoRefresh,
		count:     stockCount,
	}
}

// Register adds the periodic refresh task.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.tick); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Bool("auto_refresh", s.AutoRefresh()).Msg("scheduler started")
}

// Stop cancels any in-flight cycle and waits for cron jobs, background cycles and alerts.
// Nothing touches the recorder once Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.Cancel()
	<-s.Cron.Stop().Done()
	s.bg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

// goBackground runs fn on a tracked goroutine. It reports false once Stop has begun.
func (s *Scheduler) goBackground(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn()
	}()
	return true
}

// RunAsync starts a cycle in the background without pre-empting one in flight.
func (s *Scheduler) RunAsync(count int) {
	s.goBackground(func() {
		if _, err := s.Run(count, false); errors.Is(err, ErrBusy) {
			s.log.Debug().Msg("cycle in flight, background run skipped")
		}
	})
}

// Latest returns the most recent completed snapshot, or nil.
func (s *Scheduler) Latest() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Running reports whether a cycle is in flight.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight != nil
}

// AutoRefresh reports whether scheduled ticks run a cycle.
func (s *Scheduler) AutoRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auto
}

func (s *Scheduler) SetAutoRefresh(on bool) {
	s.mu.Lock()
	s.auto = on
	s.mu.Unlock()
	s.log.Info().Bool("auto_refresh", on).Msg("auto refresh toggled")
}

// StockCount is the number of constituents processed per cycle.
func (s *Scheduler) StockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Scheduler) SetStockCount(n int) error {
	if n < config.MinStockCount || n > config.MaxStockCount {
		return fmt.Errorf("stock count must be between %d and %d", config.MinStockCount, config.MaxStockCount)
	}
	s.mu.Lock()
	s.count = n
	s.mu.Unlock()
	return nil
}

// Cancel abandons the in-flight cycle, if any. Its partial results are discarded.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		s.inflight.cancel()
	}
}

// RefreshNow drops memoised data and starts a new cycle in the background,
// pre-empting any cycle already in flight. count <= 0 keeps the current stock count.
func (s *Scheduler) RefreshNow(count int) error {
	if count > 0 {
		if err := s.SetStockCount(count); err != nil {
			return err
		}
	}
	if s.Cache != nil {
		s.Cache.InvalidateAll()
	}
	n := s.StockCount()
	s.log.Info().Int("count", n).Msg("manual refresh requested")
	if !s.goBackground(func() { _, _ = s.Run(n, true) }) {
		return ErrStopped
	}
	return nil
}

// Run executes one cycle synchronously. With preempt, an in-flight cycle is cancelled first;
// otherwise ErrBusy is returned while one is running.
func (s *Scheduler) Run(count int, preempt bool) (*model.Snapshot, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	if s.inflight != nil {
		if !preempt {
			s.mu.Unlock()
			return nil, ErrBusy
		}
		s.inflight.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	me := &cycle{cancel: cancel}
	s.inflight = me
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.inflight == me {
			s.inflight = nil
		}
		s.mu.Unlock()
	}()

	s.runMu.Lock()
	defer s.runMu.Unlock()

	snap, err := s.Collector.Refresh(ctx, count)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.ObserveCancelled()
			s.log.Info().Msg("refresh cancelled")
		} else {
			s.log.Error().Err(err).Msg("refresh failed")
		}
		return nil, err
	}

	s.mu.Lock()
	prev := s.latest
	s.latest = snap
	s.mu.Unlock()

	metrics.ObserveSnapshot(snap)
	if err := s.Recorder.RecordRefresh(snap); err != nil {
		s.log.Error().Err(err).Str("cycle", snap.ID).Msg("record refresh")
	}
	sum := snap.Summary()
	s.log.Info().
		Str("cycle", snap.ID).
		Str("regime", string(snap.Regime)).
		Int("processed", sum.Processed).
		Int("failed", snap.Failed).
		Float64("avg_change", sum.AverageChange).
		Msg("snapshot published")

	if s.Notifier != nil && notifier.RegimeChanged(prev, snap) {
		text := notifier.FormatRegimeChange(prev, snap, s.AlertTop)
		s.goBackground(func() { s.alert(text) })
	}
	return snap, nil
}

func (s *Scheduler) alert(text string) {
	if err := s.Notifier.Send(s.ctx, text); err != nil {
		s.log.Error().Err(err).Msg("send regime alert")
		return
	}
	s.log.Info().Msg("regime alert sent")
}

func (s *Scheduler) tick() {
	if !s.AutoRefresh() {
		s.log.Debug().Msg("auto refresh off, tick skipped")
		return
	}
	if s.Running() {
		s.log.Debug().Msg("cycle in flight, tick skipped")
		return
	}
	// Every scheduled cycle starts from scratch, whatever the cache TTL.
	if s.Cache != nil {
		s.Cache.InvalidateAll()
	}
	if _, err := s.Run(s.StockCount(), false); errors.Is(err, ErrBusy) {
		s.log.Debug().Msg("cycle in flight, tick skipped")
	}
}
