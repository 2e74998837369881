package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func testPolicy(rec *sleepRecorder, maxRetries int) Policy {
	p := Policy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		Jitter:     time.Second,
	}
	p.sleep = rec.sleep
	p.rand = func() float64 { return 0.5 }
	return p
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Rate Limit exceeded"), true},
		{errors.New("429 Too Many Requests"), true},
		{fmt.Errorf("yahoo: status 429: %w", ErrRateLimited), true},
		{errors.New("symbol not found"), false},
		{errors.New("ratelimit"), false},
	}
	for _, tt := range tests {
		if got := IsRateLimited(tt.err); got != tt.want {
			t.Errorf("IsRateLimited(%v)=%v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	v, err := Do(context.Background(), testPolicy(rec, 3), func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("Do=%d,%v, want 42,nil", v, err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("unexpected sleeps: %v", rec.delays)
	}
}

func TestDo_NonTransientFailsFast(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	opErr := errors.New("symbol not found")
	_, err := Do(context.Background(), testPolicy(rec, 5), func(context.Context) (string, error) {
		calls++
		return "", opErr
	})
	if err != opErr {
		t.Fatalf("err=%v, want %v", err, opErr)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("expected no sleep, got %v", rec.delays)
	}
}

func TestDo_RecoversAfterRateLimits(t *testing.T) {
	for n := 1; n <= 4; n++ {
		rec := &sleepRecorder{}
		calls := 0
		v, err := Do(context.Background(), testPolicy(rec, 4), func(context.Context) (int, error) {
			calls++
			if calls < n {
				return 0, errors.New("Too Many Requests. Rate limited. Try after a while.")
			}
			return calls, nil
		})
		if err != nil {
			t.Fatalf("n=%d: unexpected error %v", n, err)
		}
		if v != n {
			t.Fatalf("n=%d: v=%d", n, v)
		}
		if len(rec.delays) != n-1 {
			t.Fatalf("n=%d: sleeps=%d, want %d", n, len(rec.delays), n-1)
		}
		for i, d := range rec.delays {
			floor := time.Second * time.Duration(1<<uint(i))
			if d < floor {
				t.Errorf("n=%d: delay[%d]=%v below %v", n, i, d, floor)
			}
			if d >= floor+time.Second {
				t.Errorf("n=%d: delay[%d]=%v exceeds jitter bound", n, i, d)
			}
		}
	}
}

func TestDo_ExhaustsAfterMaxRetries(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	_, err := Do(context.Background(), testPolicy(rec, 3), func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("attempt %d: %w", calls, ErrRateLimited)
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err=%v, want rate limited", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
	if len(rec.delays) != 2 {
		t.Fatalf("sleeps=%d, want 2", len(rec.delays))
	}
}

func TestDo_ZeroAttemptsReturnsNoData(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	_, err := Do(context.Background(), testPolicy(rec, 0), func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err=%v, want ErrNoData", err)
	}
	if calls != 0 {
		t.Fatalf("calls=%d, want 0", calls)
	}
}

func TestDo_MaxElapsedStopsEarly(t *testing.T) {
	rec := &sleepRecorder{}
	p := testPolicy(rec, 10)
	p.MaxElapsed = 5 * time.Second
	clock := time.Unix(0, 0)
	p.now = func() time.Time { return clock }
	p.sleep = func(ctx context.Context, d time.Duration) error {
		clock = clock.Add(d)
		return rec.sleep(ctx, d)
	}

	calls := 0
	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, ErrRateLimited
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err=%v, want rate limited", err)
	}
	// 1.5s then 2.5s fit inside 5s; the 4.5s third delay does not.
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
	if len(rec.delays) != 2 {
		t.Fatalf("sleeps=%v", rec.delays)
	}
}

func TestDo_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxRetries: 3, BaseDelay: time.Hour}
	_, err := Do(ctx, p, func(context.Context) (int, error) {
		return 0, ErrRateLimited
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

func TestDo_OnRetryHook(t *testing.T) {
	rec := &sleepRecorder{}
	p := testPolicy(rec, 3)
	var attempts []int
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}
	_, _ = Do(context.Background(), p, func(context.Context) (int, error) {
		return 0, ErrRateLimited
	})
	if len(attempts) != 2 || attempts[0] != 0 || attempts[1] != 1 {
		t.Fatalf("OnRetry attempts=%v, want [0 1]", attempts)
	}
}

func TestBackoff_Saturates(t *testing.T) {
	p := Policy{BaseDelay: time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{3, 8 * time.Second},
		{40, maxDelay},
		{63, maxDelay},
		{1000, maxDelay},
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d)=%v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDo_LongRetryChainNeverSleepsNegative(t *testing.T) {
	rec := &sleepRecorder{}
	p := testPolicy(rec, 80)
	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		return 0, ErrRateLimited
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err=%v, want ErrRateLimited", err)
	}
	if len(rec.delays) != 79 {
		t.Fatalf("sleeps=%d, want 79", len(rec.delays))
	}
	for i, d := range rec.delays {
		if d <= 0 {
			t.Fatalf("delay %d is %v", i, d)
		}
		if i > 0 && d < rec.delays[i-1] {
			t.Fatalf("delay %d (%v) shorter than delay %d (%v)", i, d, i-1, rec.delays[i-1])
		}
	}
}
