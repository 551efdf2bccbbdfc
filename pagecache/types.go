// Package pagecache implements PAGE_CACHE: a two-tier (memory + on-disk)
// content cache serving range reads for remote files, with waiter
// coalescing, speculative readahead, periodic flush/aging, and crash
// recovery. Grounded on go-fed-apcore/framework/conn's pooled-resource and
// map+mutex idioms for the concurrency shape, and on the
// `models`/`framework/db` layer built for KEY_VAULT for the disk tier's
// row-table persistence.
package pagecache

import "time"

// pageState tracks a single memory-resident page's lifecycle (spec.md
// §4.3.8: FREE -> ASSIGNED(memory) -> PERSISTED(disk) -> FREE).
type pageState int

const (
	pageFree pageState = iota
	pageAssigned
	pageWriting
)

// pageKey identifies a page uniquely by content hash and page index
// within that content version (spec.md §3: "All page cache entries are
// keyed by (hash, page_id) — never by file_id").
type pageKey struct {
	hash   string
	pageID int64
}

// page is one fixed-size slab slot in the memory tier.
type page struct {
	key      pageKey
	state    pageState
	data     []byte
	validLen int
	lastUse  int64
	useCount int64
	slabIdx  int
}

func nowUnix() int64 {
	return time.Now().Unix()
}
