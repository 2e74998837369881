// Package cache memoises upstream lookups for a refresh interval.
package cache

import (
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL matches the dashboard refresh interval.
const DefaultTTL = 5 * time.Minute

// Memo is a process-wide TTL cache keyed by function identity and arguments.
type Memo struct {
	store *gocache.Cache
	ttl   time.Duration
}

// New creates a Memo whose entries expire after ttl.
func New(ttl time.Duration) *Memo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memo{
		store: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Key builds a cache key from a function name and its arguments.
func Key(fn string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, fn)
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, ":")
}

// Remember returns the cached value for key, or calls load and caches its result.
// Errors are never cached. A nil Memo always calls load.
func Remember[T any](m *Memo, key string, load func() (T, error)) (T, error) {
	if m == nil {
		return load()
	}
	if v, ok := m.store.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	m.store.Set(key, v, gocache.DefaultExpiration)
	return v, nil
}

// InvalidateAll drops every cached entry.
func (m *Memo) InvalidateAll() {
	if m == nil {
		return
	}
	m.store.Flush()
}

// Len returns the number of cached entries, including expired ones not yet evicted.
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	return m.store.ItemCount()
}
