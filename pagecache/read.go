package pagecache

import (
	"github.com/cloudvault/enginecore/util"
)

// Read serves [offset, offset+length) of the file identified by (fileID,
// hash), writing into out and returning the number of bytes actually
// filled (spec.md §4.3.2): reads never block past the page(s) needed to
// satisfy the request, and a short read at end-of-file is not an error.
func (c *Cache) Read(ctx util.Context, fileID int64, hash string, initialSize, offset, length int64, out []byte) (int64, error) {
	if offset >= initialSize {
		return 0, nil
	}
	if offset+length > initialSize {
		length = initialSize - offset
	}
	if int64(len(out)) < length {
		length = int64(len(out))
	}
	if length <= 0 {
		return 0, nil
	}

	pageSize := int64(c.cfg.PageSize)
	startPage := offset / pageSize
	endPage := (offset + length - 1) / pageSize

	tracker := c.streams.forFile(fileID)
	freshStream := false
	st := tracker.matchOrCreate(startPage, endPage)
	if st.windowLength == endPage-startPage+1 {
		freshStream = true
	}

	var filled int64
	var missing []int64
	for p := startPage; p <= endPage; p++ {
		key := pageKey{hash: hash, pageID: p}
		if _, ok := c.servePageFromCache(ctx, key, p, pageSize, offset, length, out, &filled); !ok {
			missing = append(missing, p)
		}
	}

	if len(missing) > 0 {
		n, err := c.fetchMissingAndFill(ctx, fileID, hash, missing, pageSize, offset, length, out)
		if err != nil {
			if filled > 0 {
				return filled, nil
			}
			return 0, err
		}
		filled += n
	}

	c.maybeReadahead(ctx, fileID, hash, initialSize, st, pageSize, freshStream)

	if filled > length {
		filled = length
	}
	return filled, nil
}

// servePageFromCache attempts memory-then-disk lookup for one page,
// copying its overlap with [offset, offset+length) into out and bumping
// filled. Returns ok=false if the page is not resident anywhere.
func (c *Cache) servePageFromCache(ctx util.Context, key pageKey, p, pageSize, offset, length int64, out []byte, filled *int64) (int64, bool) {
	pageStart := p * pageSize
	loStart, hiEnd := overlap(pageStart, pageSize, offset, offset+length)
	if loStart >= hiEnd {
		return 0, true // nothing of this page is requested; treat as satisfied
	}
	dst := out[loStart-offset : hiEnd-offset]
	inPageOffset := int(loStart - pageStart)

	if mp, ok := c.memory.lookup(key); ok {
		n := copy(dst, mp.data[inPageOffset:mp.validLen])
		*filled += int64(n)
		return int64(n), true
	}

	row, ok, err := c.disk.lookupRow(ctx, key)
	if err != nil || !ok {
		return 0, false
	}
	n, err := c.disk.readSlot(row.ID, inPageOffset, dst)
	if err != nil {
		return 0, false
	}
	c.access.record(row.ID, nowUnix())
	*filled += int64(n)
	return int64(n), true
}

// overlap intersects the page byte range [pageStart, pageStart+pageSize)
// with the requested byte range [reqStart, reqEnd).
func overlap(pageStart, pageSize, reqStart, reqEnd int64) (lo, hi int64) {
	lo = pageStart
	if reqStart > lo {
		lo = reqStart
	}
	hi = pageStart + pageSize
	if reqEnd < hi {
		hi = reqEnd
	}
	if hi < lo {
		hi = lo
	}
	return
}

// fetchMissingAndFill registers waiters for every page in missing and
// drives one coalesced network fetch spanning their min..max page
// (spec.md §4.3.2 step 4: "coalesce adjacent misses into one contiguous
// range"); any already-resident page inside that span is refetched too,
// which is wasted bandwidth but not a correctness issue since delivery
// is idempotent. Blocks until every registered waiter has either been
// filled or failed.
func (c *Cache) fetchMissingAndFill(ctx util.Context, fileID int64, hash string, missing []int64, pageSize, offset, length int64, out []byte) (int64, error) {
	type pending struct {
		entry     *waitEntry
		first     bool
		srcOffset int
		dstLen    int
	}
	var regs []pending

	startPage, endPage := missing[0], missing[0]
	for _, p := range missing {
		if p < startPage {
			startPage = p
		}
		if p > endPage {
			endPage = p
		}
	}

	for _, p := range missing {
		key := pageKey{hash: hash, pageID: p}
		pageStart := p * pageSize
		loStart, hiEnd := overlap(pageStart, pageSize, offset, offset+length)
		if loStart >= hiEnd {
			continue
		}
		dst := out[loStart-offset : hiEnd-offset]
		srcOffset := int(loStart - pageStart)
		entry, first := c.waits.registerOrJoin(key, dst, srcOffset)
		regs = append(regs, pending{entry: entry, first: first, srcOffset: srcOffset, dstLen: len(dst)})
	}

	anyFirst := false
	for _, r := range regs {
		if r.first {
			anyFirst = true
		}
	}
	if anyFirst {
		go c.fetchRange(detach(ctx), fileID, hash, startPage, endPage)
	}

	var filled int64
	var firstErr error
	for _, r := range regs {
		<-r.entry.done
		if r.entry.err != nil {
			if firstErr == nil {
				firstErr = r.entry.err
			}
			continue
		}
		n := r.entry.size - r.srcOffset
		if n < 0 {
			n = 0
		}
		if n > r.dstLen {
			n = r.dstLen
		}
		filled += int64(n)
	}
	if firstErr != nil && filled == 0 {
		return 0, firstErr
	}
	return filled, nil
}

// maybeReadahead computes and issues a speculative prefetch beyond the
// stream's window unless MaxConcurrentReadahead readahead fetches are
// already in flight (spec.md §4.3.3). Every read can trigger one; the
// stream is not checked for being sequential.
func (c *Cache) maybeReadahead(ctx util.Context, fileID int64, hash string, initialSize int64, st *stream, pageSize int64, freshStream bool) {
	if !c.readaheadSem.TryAcquire(1) {
		return
	}
	released := false
	release := func() {
		if !released {
			released = true
			c.readaheadSem.Release(1)
		}
	}
	defer release()

	size := computeReadaheadSize(c.cfg, st.fromPage*pageSize, int(st.windowLength*pageSize), freshStream, 0)
	if size <= 0 {
		return
	}
	extraPages := ceilDiv(int64(size), pageSize)
	from := st.toPage + 1
	to := from + extraPages - 1
	maxPage := (initialSize - 1) / pageSize
	if to > maxPage {
		to = maxPage
	}
	if from > to {
		return
	}

	firstMissing := int64(-1)
	for p := from; p <= to; p++ {
		key := pageKey{hash: hash, pageID: p}
		if _, ok := c.memory.lookup(key); ok {
			continue
		}
		if c.waits.isAwaited(key) {
			continue
		}
		firstMissing = p
		break
	}
	if firstMissing < 0 {
		return
	}
	st.requestedTo = to

	// The permit is held for the fetch's lifetime, not just its launch,
	// so MaxConcurrentReadahead actually caps in-flight background
	// fetches (spec.md §4.3.3 step 6).
	released = true
	go func() {
		defer c.readaheadSem.Release(1)
		c.fetchRange(detach(ctx), fileID, hash, firstMissing, to)
	}()
}

// detach strips cancellation from ctx for a background fetch that should
// outlive the originating Read call (readahead and coalesced fetches are
// shared with other waiters).
func detach(ctx util.Context) util.Context {
	return util.Background()
}
