package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"SP500Tracker/internal/model"
	"SP500Tracker/internal/retry"
)

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken123/sendMessage" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(srv.URL, "token123", "42", "")
	if err := n.Send(context.Background(), "<b>hello</b>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "<b>hello</b>" || got["parse_mode"] != "HTML" {
		t.Fatalf("payload=%v", got)
	}
}

func TestTelegramNotifier_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(srv.URL, "t", "1", "")
	n.Retry = retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond}
	if err := n.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls=%d, want 2", calls.Load())
	}
}

func TestTelegramNotifier_PermanentError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegramNotifier(srv.URL, "t", "1", "")
	n.Retry = retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond}
	err := n.Send(context.Background(), "hi")
	if err == nil || errors.Is(err, retry.ErrRateLimited) {
		t.Fatalf("err=%v, want permanent error", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls=%d, want 1", calls.Load())
	}
}

func TestRegimeChanged(t *testing.T) {
	up := &model.Snapshot{Regime: model.RegimeUp}
	down := &model.Snapshot{Regime: model.RegimeDown}
	unknown := &model.Snapshot{Regime: model.RegimeUnknown}

	tests := []struct {
		name      string
		prev, cur *model.Snapshot
		want      bool
	}{
		{"first cycle", nil, up, false},
		{"unchanged", up, &model.Snapshot{Regime: model.RegimeUp}, false},
		{"flip", up, down, true},
		{"into unknown", up, unknown, false},
		{"out of unknown", unknown, down, false},
	}
	for _, tt := range tests {
		if got := RegimeChanged(tt.prev, tt.cur); got != tt.want {
			t.Errorf("%s: RegimeChanged=%v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFormatRegimeChange(t *testing.T) {
	prev := &model.Snapshot{Regime: model.RegimeUp}
	cur := &model.Snapshot{
		Regime:     model.RegimeDown,
		FinishedAt: time.Date(2024, 6, 3, 16, 0, 0, 0, time.Local),
		Failed:     2,
		Rows: []model.InstrumentMetrics{
			{Symbol: "NVDA", CompanyName: "NVIDIA", WindowRateOfChange: 40, PercentChangeDaily: -1},
			{Symbol: "T", CompanyName: "AT&T Inc.", WindowRateOfChange: 10, PercentChangeDaily: 0.5},
			{Symbol: "F", CompanyName: "Ford", WindowRateOfChange: 1},
		},
	}
	msg := FormatRegimeChange(prev, cur, 2)
	for _, want := range []string{"UP → DOWN", "S&amp;P 500 DOWN Today", "1. NVDA (NVIDIA) +40.00%", "2. T (AT&amp;T Inc.)", "Failed to load: 2 stocks"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Ford") {
		t.Error("message lists more rows than requested")
	}
}
