package pagecache

import (
	"database/sql"
	"runtime"
	"sort"
	"sync"

	"github.com/cloudvault/enginecore/models"
	"github.com/cloudvault/enginecore/util"
)

// accessRingSize is DB_CACHE_UPDATE_HASH: the fixed-size direct-addressed
// ring batching disk-tier access-time/use-count updates so a served read
// never pays for a synchronous row write (spec.md §4.3.6).
const accessRingSize = 4096

type accessSlot struct {
	id      int64
	lastUse int64
	valid   bool
}

// accessRing batches BumpUsage calls. A reader bumps its slot directly
// (best-effort: a racing write to the same slot may be lost, which
// spec.md §5 explicitly tolerates — "Access-update batching is
// best-effort; lost updates are acceptable").
type accessRing struct {
	mu   sync.Mutex
	ring [accessRingSize]accessSlot
	rows *models.PageCacheRows
}

func newAccessRing(rows *models.PageCacheRows) *accessRing {
	return &accessRing{rows: rows}
}

// record stashes a disk-tier hit's (id, lastUse) in the ring for the next
// flush cycle to drain.
func (a *accessRing) record(id, lastUse int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring[id%accessRingSize] = accessSlot{id: id, lastUse: lastUse, valid: true}
}

// drain flushes every valid ring slot to the row table with one prepared
// statement per slot, clearing the ring as it goes.
func (a *accessRing) drain(c util.Context, tx *sql.Tx) error {
	a.mu.Lock()
	slots := a.ring
	a.ring = [accessRingSize]accessSlot{}
	a.mu.Unlock()

	for _, s := range slots {
		if !s.valid {
			continue
		}
		if err := a.rows.BumpUsage(c, tx, s.id, s.lastUse); err != nil {
			return err
		}
	}
	return nil
}

// flushOnce moves resident READ pages to the disk tier (spec.md §4.3.5
// steps 1-6) and drains the access-update ring.
func (c *Cache) flushOnce(ctx util.Context) {
	pages := c.memory.snapshotResident()
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].key.hash != pages[j].key.hash {
			return pages[i].key.hash < pages[j].key.hash
		}
		return pages[i].key.pageID < pages[j].key.pageID
	})
	if len(pages) == 0 {
		c.drainAccessRing(ctx)
		return
	}

	slotIDs, err := c.allocateSlots(ctx, len(pages))
	if err != nil {
		return
	}
	// allocateSlots may return fewer slots than requested when the disk
	// is full; the pages left without a slot are not written this cycle
	// and stay resident unless handleDiskFull's discard released them.
	if len(slotIDs) < len(pages) {
		pages = pages[:len(slotIDs)]
	}
	if len(pages) == 0 {
		c.drainAccessRing(ctx)
		return
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	defer tx.Rollback()

	for i, p := range pages {
		id := slotIDs[i]
		if err := c.disk.writeSlot(id, p.data[:p.validLen]); err != nil {
			return
		}
		row := &models.PageCacheRow{
			ID:      id,
			Type:    models.PageTypeData,
			Hash:    p.key.hash,
			PageID:  p.key.pageID,
			LastUse: p.lastUse,
			UseCnt:  p.useCount,
			Size:    p.validLen,
		}
		if err := c.disk.rows.Update(ctx, tx, row); err != nil {
			return
		}
	}
	if err := c.access.drain(ctx, tx); err != nil {
		return
	}
	if err := tx.Commit(); err != nil {
		return
	}
	if err := c.disk.sync(); err != nil {
		return
	}
	for _, p := range pages {
		c.memory.release(p.key)
	}

	c.maybeGrowPagefile(ctx)
}

func (c *Cache) drainAccessRing(ctx util.Context) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	defer tx.Rollback()
	if err := c.access.drain(ctx, tx); err != nil {
		return
	}
	tx.Commit()
}

// allocateSlots pulls up to n FREE rows from the row table, growing the
// pagefile by one slot at a time for any shortfall (spec.md §4.3.5 step
// 2). When growth would breach the configured free-space reserve, it
// triggers disk-full handling instead and returns fewer than n ids; the
// caller (flushOnce) drops the pages that didn't get a slot rather than
// writing them.
func (c *Cache) allocateSlots(ctx util.Context, n int) ([]int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	ids, err := c.disk.rows.FirstNFree(ctx, tx, n)
	tx.Rollback()
	if err != nil {
		return nil, err
	}
	for len(ids) < n {
		full, ferr := c.diskNearlyFull()
		if ferr != nil {
			return ids, nil
		}
		if full {
			c.handleDiskFull(ctx)
			return ids, nil
		}
		id, err := c.disk.growOneSlot(ctx)
		if err != nil {
			return ids, nil
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// diskNearlyFull reports whether growing the pagefile by one more slot
// would leave less free space than the configured reserve (spec.md
// §4.3.5: "if the pagefile plus required free-space reserve exceeds the
// actual free space").
func (c *Cache) diskNearlyFull() (bool, error) {
	free, err := c.disk.freeBytes()
	if err != nil {
		return false, err
	}
	needed := uint64(c.cfg.MinFreeDiskReserveBytes) + uint64(c.cfg.PageSize)
	return free < needed, nil
}

// handleDiskFull shrinks the pagefile to half its current size, discards
// the coldest resident memory pages instead of writing them out, and
// raises the local-full flag for the filesystem front end to consume
// (spec.md §4.3.5: "truncate the pagefile to a smaller maximum, discard
// the oldest READ memory pages, and set a local-full flag"). Shrinking to
// half is this engine's own choice of "a smaller maximum" — spec.md
// leaves the target size unspecified.
func (c *Cache) handleDiskFull(ctx util.Context) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	maxID, err := c.disk.rows.MaxID(ctx, tx)
	tx.Rollback()
	if err != nil {
		return
	}
	newMax := maxID / 2
	if newMax < 1 {
		newMax = 1
	}
	if err := c.disk.truncateToSlots(ctx, newMax); err != nil {
		return
	}

	c.discardColdestMemoryPages(c.cfg.MemoryPages / 2)

	if c.notifier != nil {
		c.notifier.NotifyLocalFull(true)
	}
}

// discardColdestMemoryPages frees up to n resident memory pages, oldest
// last_use first, without writing them to disk — used by disk-full
// handling, which by definition cannot afford to flush them.
func (c *Cache) discardColdestMemoryPages(n int) {
	if n <= 0 {
		return
	}
	pages := c.memory.snapshotResident()
	sort.Slice(pages, func(i, j int) bool { return pages[i].lastUse < pages[j].lastUse })
	if n > len(pages) {
		n = len(pages)
	}
	for _, p := range pages[:n] {
		c.memory.release(p.key)
	}
}

// maybeGrowPagefile extends the pagefile by one slot when the disk tier
// is below its configured target size (spec.md §4.3.5 step 6).
func (c *Cache) maybeGrowPagefile(ctx util.Context) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	total, err := c.disk.rows.MaxID(ctx, tx)
	tx.Rollback()
	if err != nil {
		return
	}
	if total+1 >= c.cfg.MaxDiskPages {
		return
	}
	if full, err := c.diskNearlyFull(); err != nil || full {
		return
	}
	c.disk.growOneSlot(ctx)
}

// Aging round thresholds, each expressed as the fraction of the remaining
// READ rows passing that round's use-count filter discarded at that round (spec.md §4.3.5: "first
// the oldest LRU_PCT by last_use; then the oldest LRU2_PCT among those
// with use_count < 2; then similarly at thresholds 4, 8, 16").
var agingRounds = []struct {
	pct       float64
	maxUseCnt int64 // -1 means "no use-count filter"
}{
	{pct: 0.50, maxUseCnt: -1},
	{pct: 0.50, maxUseCnt: 2},
	{pct: 0.50, maxUseCnt: 4},
	{pct: 0.50, maxUseCnt: 8},
	{pct: 0.50, maxUseCnt: 16},
}

// ageOnce implements the layered LRU/LFU aging sweep (spec.md §4.3.5
// "Aging"): successive stable-sort rounds each discard the oldest half of
// the remaining READ rows that pass the round's use-count filter. A sweep
// erases up to about 97% of resident rows (when every row's use count is
// below 2); rows with higher use counts survive the later rounds.
func (c *Cache) ageOnce(ctx util.Context) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	rows, err := c.disk.rows.ReadByType(ctx, tx, models.PageTypeData)
	tx.Rollback()
	if err != nil {
		return
	}

	candidates := rows
	var toFree []int64
	for _, round := range agingRounds {
		if len(candidates) == 0 {
			break
		}
		var pool []models.PageCacheRow
		if round.maxUseCnt < 0 {
			pool = candidates
		} else {
			for _, r := range candidates {
				if r.UseCnt < round.maxUseCnt {
					pool = append(pool, r)
				}
			}
		}
		sort.SliceStable(pool, func(i, j int) bool { return pool[i].LastUse < pool[j].LastUse })
		n := int(float64(len(pool)) * round.pct)
		for i := 0; i < n; i++ {
			toFree = append(toFree, pool[i].ID)
		}
		candidates = remainder(candidates, pool[:n])
	}

	c.freeSlotsBatched(ctx, toFree)
}

// remainder returns rows minus removed, matched by ID.
func remainder(rows []models.PageCacheRow, removed []models.PageCacheRow) []models.PageCacheRow {
	skip := make(map[int64]bool, len(removed))
	for _, r := range removed {
		skip[r.ID] = true
	}
	out := rows[:0:0]
	for _, r := range rows {
		if !skip[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// freeSlotsBatched switches the given slot ids back to FREE in committed
// batches of 256 with brief yields between batches (spec.md §4.3.5:
// "Erasure switches rows back to FREE in committed batches of 256 with
// brief yields").
func (c *Cache) freeSlotsBatched(ctx util.Context, ids []int64) {
	const batchSize = 256
	for i := 0; i < len(ids); i += batchSize {
		end := i + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return
		}
		for _, id := range ids[i:end] {
			if err := c.disk.rows.Free(ctx, tx, id); err != nil {
				tx.Rollback()
				return
			}
		}
		tx.Commit()
		runtime.Gosched()
	}
}
