package pagecache

import (
	"hash/fnv"
	"sync"
)

// waitBucketCount is the fixed small array of per-bucket wait mutexes
// spec.md §5 calls for ("Per-bucket wait mutexes (fixed small array, e.g.
// 16)") to avoid a single global waiter lock.
const waitBucketCount = 16

// waiter is one reader blocked on a not-yet-resident (hash, page_id).
// Once the fetch completes, the overlapping region of the filled page is
// copied into dst starting at srcOffset.
type waiter struct {
	dst       []byte
	srcOffset int
}

// waitEntry is spec.md §3's "Wait entry": at most one per unsatisfied
// (hash, page_id), fanning out to every concurrent reader that asked for
// it. done is closed exactly once, broadcasting to every blocked waiter
// in one shot — the idiomatic Go analogue of a condition variable
// broadcast.
type waitEntry struct {
	key     pageKey
	waiters []*waiter
	done    chan struct{}

	size int
	err  error
}

type waitBucket struct {
	mu      sync.Mutex
	entries map[pageKey]*waitEntry
}

// waitIndex is the full set of per-bucket wait entries guarding in-flight
// network fetches.
type waitIndex struct {
	buckets [waitBucketCount]waitBucket
}

func newWaitIndex() *waitIndex {
	w := &waitIndex{}
	for i := range w.buckets {
		w.buckets[i].entries = make(map[pageKey]*waitEntry)
	}
	return w
}

func bucketIndex(key pageKey) int {
	h := fnv.New32a()
	h.Write([]byte(key.hash))
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(key.pageID >> (8 * i))
	}
	h.Write(buf[:])
	return int(h.Sum32() % waitBucketCount)
}

// registerOrJoin attaches a waiter for key, copying dst/srcOffset so the
// eventual fetch completion can fill it directly. isFirst reports whether
// the caller must itself drive the fetch (spec.md §4.3.2 step 4:
// "register a waiter ... coalesce"); false means another goroutine is
// already fetching and the caller only waits.
func (w *waitIndex) registerOrJoin(key pageKey, dst []byte, srcOffset int) (entry *waitEntry, isFirst bool) {
	b := &w.buckets[bucketIndex(key)]
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[key]; ok {
		e.waiters = append(e.waiters, &waiter{dst: dst, srcOffset: srcOffset})
		return e, false
	}
	e := &waitEntry{
		key:     key,
		waiters: []*waiter{{dst: dst, srcOffset: srcOffset}},
		done:    make(chan struct{}),
	}
	b.entries[key] = e
	return e, true
}

// complete fills every registered waiter's destination from data, records
// size/err, removes the entry, and broadcasts completion (spec.md §4.3.4:
// "copy the overlapping region into each waiter's destination buffer, set
// each waiter's status, and broadcast its condition variable").
func (w *waitIndex) complete(key pageKey, data []byte, size int, fetchErr error) {
	b := &w.buckets[bucketIndex(key)]
	b.mu.Lock()
	e, ok := b.entries[key]
	if ok {
		delete(b.entries, key)
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	e.size = size
	e.err = fetchErr
	if fetchErr == nil {
		for _, wt := range e.waiters {
			n := size - wt.srcOffset
			if n <= 0 {
				continue
			}
			if n > len(wt.dst) {
				n = len(wt.dst)
			}
			copy(wt.dst, data[wt.srcOffset:wt.srcOffset+n])
		}
	}
	close(e.done)
}

// isAwaited reports whether key already has an in-flight wait entry,
// without registering a new waiter — used by readahead to skip pages
// another request is already fetching (spec.md §4.3.3 step 5).
func (w *waitIndex) isAwaited(key pageKey) bool {
	b := &w.buckets[bucketIndex(key)]
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[key]
	return ok
}
