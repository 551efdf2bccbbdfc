package pagecache

import (
	"fmt"
	"io"

	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/util"
)

// fetchRange drives a single contiguous range request over the network
// (spec.md §4.3.4): resolve the URL bundle, stream the byte range, fill
// fresh pages, and wake every waiter registered on the pages it covers.
// Ranges failing with a transient error invalidate the URL bundle and are
// retried here, up to five attempts in all; a fatal error, or the last
// failed attempt, propagates EIO to every waiter in the range.
func (c *Cache) fetchRange(ctx util.Context, fileID int64, hash string, startPage, endPage int64) {
	const maxAttempts = 5
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = c.fetchRangeOnce(ctx, fileID, hash, startPage, endPage)
		if lastErr == nil {
			return
		}
		if !errs.IsTransport(lastErr) {
			break
		}
		c.urls.invalidate(hash)
	}
	c.failRange(hash, startPage, endPage, errs.ErrIO.Wrap(lastErr))
}

func (c *Cache) fetchRangeOnce(ctx util.Context, fileID int64, hash string, startPage, endPage int64) error {
	bundle, err := c.urls.get(ctx, fileID, hash)
	if err != nil {
		return err
	}
	if len(bundle.hosts) == 0 {
		return errs.ErrRemoteNotFound
	}

	url := fmt.Sprintf("%s%s", bundle.hosts[0], bundle.path)
	pageSize := int64(c.cfg.PageSize)
	offset := startPage * pageSize
	length := (endPage - startPage + 1) * pageSize

	body, err := c.api.ReadFile(ctx, url, offset, length)
	if err != nil {
		return err
	}
	defer body.Close()

	for p := startPage; p <= endPage; p++ {
		buf := make([]byte, pageSize)
		n, readErr := io.ReadFull(body, buf)
		if readErr == io.ErrUnexpectedEOF || readErr == io.EOF {
			readErr = nil
		}
		if readErr != nil {
			c.failRange(hash, p, endPage, errs.ErrIO.Wrap(readErr))
			return nil
		}
		c.deliverPage(hash, p, buf, n)
	}
	return nil
}

// deliverPage completes the wait entry for (hash, pageID) with the bytes
// just fetched, then tries to cache the page in the memory tier (spec.md
// §4.3.4: "consult the wait index ... insert the page into the
// memory-tier hash bucket"). If no free slot is available the page is
// still delivered to its waiters; it is simply not cached, leaving the
// next flush/aging cycle to make room.
func (c *Cache) deliverPage(hash string, pageID int64, data []byte, size int) {
	key := pageKey{hash: hash, pageID: pageID}
	c.waits.complete(key, data, size, nil)

	if p, ok := c.memory.acquireFree(); ok {
		copy(p.data, data[:size])
		c.memory.publish(key, p, size)
	}
}

// failRange propagates fetchErr to every waiter whose page falls in
// [startPage, endPage] (spec.md §4.3.8: "Errors observed mid-fetch
// propagate as EIO to exactly those waiters whose range intersects the
// failed subrange").
func (c *Cache) failRange(hash string, startPage, endPage int64, fetchErr error) {
	for p := startPage; p <= endPage; p++ {
		c.waits.complete(pageKey{hash: hash, pageID: p}, nil, 0, fetchErr)
	}
}
