package cache

import (
	"errors"
	"testing"
	"time"
)

func TestRemember_CachesValue(t *testing.T) {
	m := New(time.Minute)
	calls := 0
	load := func() (string, error) {
		calls++
		return "UP", nil
	}

	for i := 0; i < 3; i++ {
		v, err := Remember(m, Key("regime", "SPY", "5d"), load)
		if err != nil || v != "UP" {
			t.Fatalf("Remember=%q,%v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("load calls=%d, want 1", calls)
	}
}

func TestRemember_DoesNotCacheErrors(t *testing.T) {
	m := New(time.Minute)
	calls := 0
	load := func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("boom")
		}
		return 7, nil
	}

	if _, err := Remember(m, "k", load); err == nil {
		t.Fatal("expected error on first load")
	}
	v, err := Remember(m, "k", load)
	if err != nil || v != 7 {
		t.Fatalf("Remember=%d,%v, want 7,nil", v, err)
	}
	if calls != 2 {
		t.Fatalf("load calls=%d, want 2", calls)
	}
}

func TestRemember_Expires(t *testing.T) {
	m := New(20 * time.Millisecond)
	calls := 0
	load := func() (int, error) {
		calls++
		return calls, nil
	}

	_, _ = Remember(m, "k", load)
	time.Sleep(40 * time.Millisecond)
	v, _ := Remember(m, "k", load)
	if v != 2 {
		t.Fatalf("value after expiry=%d, want 2", v)
	}
}

func TestInvalidateAll(t *testing.T) {
	m := New(time.Minute)
	_, _ = Remember(m, "a", func() (int, error) { return 1, nil })
	_, _ = Remember(m, "b", func() (int, error) { return 2, nil })
	if m.Len() != 2 {
		t.Fatalf("Len=%d, want 2", m.Len())
	}

	m.InvalidateAll()
	if m.Len() != 0 {
		t.Fatalf("Len after InvalidateAll=%d, want 0", m.Len())
	}
	v, _ := Remember(m, "a", func() (int, error) { return 10, nil })
	if v != 10 {
		t.Fatalf("expected reload after invalidation, got %d", v)
	}
}

func TestNilMemoPassesThrough(t *testing.T) {
	var m *Memo
	calls := 0
	for i := 0; i < 2; i++ {
		_, _ = Remember(m, "k", func() (int, error) { calls++; return 1, nil })
	}
	if calls != 2 {
		t.Fatalf("calls=%d, want 2", calls)
	}
	m.InvalidateAll()
}

func TestKey(t *testing.T) {
	if got := Key("regime", "SPY", "5d"); got != "regime:SPY:5d" {
		t.Fatalf("Key=%q", got)
	}
	if got := Key("universe"); got != "universe" {
		t.Fatalf("Key=%q", got)
	}
}
