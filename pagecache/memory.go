package pagecache

import "sync"

// memoryTier is the pre-allocated slab of CACHE_PAGES pages backing
// PAGE_CACHE's memory tier (spec.md §4.3.1). It is indexed by a Go map
// rather than the open-addressed hash table spec.md's "H-bucket" wording
// suggests — idiomatic Go reaches for map[K]V over hand-rolled open
// addressing, and the two are observationally equivalent for this
// engine's purposes (O(1) average lookup, no ordering guarantee).
//
// cacheMutex is the short-critical-section mutex of spec.md §5's
// cache_mutex: it guards the hash bucket, free list, and counters, and is
// never held across I/O.
type memoryTier struct {
	cacheMutex sync.Mutex

	pageSize int
	slabs    [][]byte
	free     []*page
	resident map[pageKey]*page
}

func newMemoryTier(pageCount, pageSize int) *memoryTier {
	m := &memoryTier{
		pageSize: pageSize,
		slabs:    make([][]byte, pageCount),
		free:     make([]*page, 0, pageCount),
		resident: make(map[pageKey]*page, pageCount),
	}
	for i := 0; i < pageCount; i++ {
		m.slabs[i] = make([]byte, pageSize)
		m.free = append(m.free, &page{state: pageFree, data: m.slabs[i], slabIdx: i})
	}
	return m
}

// acquireFree pops a free page slot for the caller to fill, or reports
// false if the memory tier is fully resident (the caller then skips
// caching the page; slots come free when the flush cycle moves pages to
// disk).
func (m *memoryTier) acquireFree() (*page, bool) {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()
	n := len(m.free)
	if n == 0 {
		return nil, false
	}
	p := m.free[n-1]
	m.free = m.free[:n-1]
	return p, true
}

// publish inserts a filled page into the resident hash bucket under key,
// marking it ASSIGNED (spec.md §4.3.4: "Insert the page into the
// memory-tier hash bucket").
func (m *memoryTier) publish(key pageKey, p *page, validLen int) {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()
	p.key = key
	p.state = pageAssigned
	p.validLen = validLen
	p.lastUse = nowUnix()
	p.useCount = 0
	m.resident[key] = p
}

// lookup returns the resident page for key without removing it, bumping
// its access stats (spec.md §4.3.2 step 3: "attempt to serve from
// memory").
func (m *memoryTier) lookup(key pageKey) (*page, bool) {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()
	p, ok := m.resident[key]
	if !ok {
		return nil, false
	}
	p.lastUse = nowUnix()
	p.useCount++
	return p, true
}

// release returns p to the free list, e.g. after the flush cycle has
// written it to disk.
func (m *memoryTier) release(key pageKey) {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()
	p, ok := m.resident[key]
	if !ok {
		return
	}
	delete(m.resident, key)
	p.state = pageFree
	p.key = pageKey{}
	m.free = append(m.free, p)
}

// snapshotResident returns a copy of every currently resident page,
// sorted by the caller, for the flush cycle to drain (spec.md §4.3.5 step
// 1: "enumerate READ pages and sort by (hash, page_id)").
func (m *memoryTier) snapshotResident() []*page {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()
	out := make([]*page, 0, len(m.resident))
	for _, p := range m.resident {
		out = append(out, p)
	}
	return out
}

// freeCount reports how many slots are currently unused.
func (m *memoryTier) freeCount() int {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()
	return len(m.free)
}
