package pagecache

import (
	"sync"

	"github.com/cloudvault/enginecore/framework/config"
)

// fileStreamsCount is FILESTREAMS_CNT: the number of concurrent
// sequential-read streams tracked per open file (spec.md §4.3.3).
const fileStreamsCount = 4

// Readahead size alignment boundaries (spec.md §4.3.3 step 3: "aligned up
// to coarse boundaries (64 KiB / 256 KiB / 1 MiB / 4 MiB depending on
// size)").
var alignmentBoundaries = []int{64 * 1024, 256 * 1024, 1024 * 1024, 4 * 1024 * 1024}

// stream is one tracked sequential-read descriptor (spec.md §3).
type stream struct {
	fromPage     int64
	toPage       int64
	windowLength int64
	requestedTo  int64
	lastUse      int64
	monotonicID  int64
}

// streamTracker holds up to fileStreamsCount streams for a single open
// file, evicting the least-recently-touched stream (lowest monotonic id)
// when a new one must be created (spec.md §4.3.3 steps 1-2).
type streamTracker struct {
	mu      sync.Mutex
	streams []*stream
	nextID  int64
}

func newStreamTracker() *streamTracker {
	return &streamTracker{}
}

// matchOrCreate finds a stream whose window can be extended to cover a
// read starting at fromPage, or evicts the coldest stream to start a new
// one (spec.md §4.3.3 step 1: "Match the read against an existing stream
// if its from_page ≤ read.from ≤ stream.to+2").
func (t *streamTracker) matchOrCreate(fromPage, toPage int64) *stream {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++

	for _, s := range t.streams {
		if s.fromPage <= fromPage && fromPage <= s.toPage+2 {
			if toPage > s.toPage {
				s.toPage = toPage
			}
			s.windowLength = s.toPage - s.fromPage + 1
			s.monotonicID = t.nextID
			return s
		}
	}

	if len(t.streams) < fileStreamsCount {
		s := &stream{fromPage: fromPage, toPage: toPage, windowLength: toPage - fromPage + 1, monotonicID: t.nextID}
		t.streams = append(t.streams, s)
		return s
	}

	coldest := t.streams[0]
	for _, s := range t.streams[1:] {
		if s.monotonicID < coldest.monotonicID {
			coldest = s
		}
	}
	coldest.fromPage = fromPage
	coldest.toPage = toPage
	coldest.windowLength = toPage - fromPage + 1
	coldest.requestedTo = 0
	coldest.monotonicID = t.nextID
	return coldest
}

// streamRegistry maps fileID to its streamTracker, created lazily.
type streamRegistry struct {
	mu       sync.Mutex
	trackers map[int64]*streamTracker
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{trackers: make(map[int64]*streamTracker)}
}

func (r *streamRegistry) forFile(fileID int64) *streamTracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[fileID]
	if !ok {
		t = newStreamTracker()
		r.trackers[fileID] = t
	}
	return t
}

// alignUp rounds size up to a multiple of the largest boundary not
// exceeding it, or of the smallest boundary if size is below all of them
// (spec.md §4.3.3 step 3).
func alignUp(size int) int {
	chosen := alignmentBoundaries[0]
	for _, b := range alignmentBoundaries {
		if size >= b {
			chosen = b
		}
	}
	aligned := ((size + chosen - 1) / chosen) * chosen
	return aligned
}

// computeReadaheadSize implements spec.md §4.3.3 step 3: a minimum
// starting size depending on whether the read begins at offset 0,
// bounded above by both a speed-based ceiling and an absolute ceiling,
// then aligned to a coarse boundary. freshStream indicates a
// newly-created (as opposed to extended) stream, which gets the
// FreshStreamMultiplier applied (spec.md §9(iii)'s resolved "4x" rule,
// see DESIGN.md).
func computeReadaheadSize(cfg config.PageCacheConfig, offset int64, readLen int, freshStream bool, speedBytesPerSec float64) int {
	var base int
	if offset == 0 && readLen < cfg.MinReadaheadStart {
		base = cfg.MinReadaheadStart
	} else {
		base = cfg.MinReadaheadRand
	}

	if freshStream {
		base *= cfg.FreshStreamMultiplier
	}

	if speedBytesPerSec > 0 {
		speedCeiling := int(speedBytesPerSec * float64(cfg.MaxReadaheadSec))
		if speedCeiling > 0 && speedCeiling < base {
			base = speedCeiling
		}
	}
	if base > cfg.MaxReadahead {
		base = cfg.MaxReadahead
	}
	return alignUp(base)
}
