// Package cachemanager implements CACHE_MANAGER: a process-wide associative
// cache mapping opaque string keys to typed objects with a per-entry TTL
// and a caller-supplied release function. Grounded on the
// map+mutex+prune-ticker shape of go-fed/apcore's
// framework/conn/host_limiter.go, generalized from "rate limiter per host"
// to "arbitrary released object per key".
package cachemanager

import (
	"context"
	"sync"
	"time"

	"github.com/cloudvault/enginecore/util"
)

// ReleaseFunc is called on an entry's value when it is evicted without
// having been retrieved by Get — either because it expired, because a
// newer Add overwrote it, or because CleanAll tore the whole manager down.
type ReleaseFunc func(value interface{})

// Priority is reserved for future eviction-pressure tie-breaking; the
// manager is purely TTL-based today (spec.md §4.1: "not an LRU"), but
// Add's contract already carries a priority value so callers need not
// change when that changes.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityLow
	PriorityHigh
)

type entry struct {
	value    interface{}
	release  ReleaseFunc
	priority Priority
	expires  time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.expires)
}

// Manager is CACHE_MANAGER: thread-safe, single-holder semantics (Get
// removes the entry; the caller re-inserts with Add when finished), coarse
// time-based expiry, no blocking I/O in any operation.
type Manager struct {
	mu      sync.Mutex
	entries map[string]entry

	janitor     *util.SafeStartStop
	prunePeriod time.Duration
}

// NewManager constructs an empty Manager. prunePeriod controls how often
// the background janitor sweeps for expired entries that were never
// retrieved via Get; it does not affect the correctness of Get itself,
// which always checks expiry on access.
func NewManager(prunePeriod time.Duration) *Manager {
	if prunePeriod <= 0 {
		prunePeriod = 30 * time.Second
	}
	m := &Manager{
		entries:     make(map[string]entry),
		prunePeriod: prunePeriod,
	}
	m.janitor = util.NewSafeStartStop(func(ctx context.Context) {
		m.sweep()
	}, m.prunePeriod)
	return m
}

// Start launches the background janitor that drops expired entries which
// were never retrieved. Idempotent.
func (m *Manager) Start() {
	m.janitor.Start()
}

// Stop halts the janitor and releases every remaining entry, equivalent to
// CleanAll.
func (m *Manager) Stop() {
	m.janitor.Stop()
	m.CleanAll()
}

// Get returns and removes the entry for key if present and not expired.
// The caller owns the returned object and is responsible for calling Add
// again (or releasing it) when finished, per spec.md §4.1.
func (m *Manager) Get(key string) (value interface{}, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, present := m.entries[key]
	if !present {
		return nil, false
	}
	delete(m.entries, key)
	if e.expired(time.Now()) {
		if e.release != nil {
			e.release(e.value)
		}
		return nil, false
	}
	return e.value, true
}

// Add inserts value under key with the given ttl and release function. If
// an entry already exists under key, its release function is invoked on
// the old value first (spec.md §4.1).
func (m *Manager) Add(key string, value interface{}, ttl time.Duration, release ReleaseFunc, priority Priority) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, present := m.entries[key]; present && old.release != nil {
		old.release(old.value)
	}
	m.entries[key] = entry{
		value:    value,
		release:  release,
		priority: priority,
		expires:  time.Now().Add(ttl),
	}
}

// CleanAll calls release on every entry and empties the manager.
func (m *Manager) CleanAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.release != nil {
			e.release(e.value)
		}
	}
	m.entries = make(map[string]entry)
}

// sweep drops (and releases) expired entries without requiring a Get,
// keeping long-lived-but-unused derived keys from pinning memory.
func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for k, e := range m.entries {
		if e.expired(now) {
			if e.release != nil {
				e.release(e.value)
			}
			delete(m.entries, k)
		}
	}
}

// Len reports the number of entries currently held, for tests and metrics.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
