package models

import (
	"database/sql"

	"github.com/cloudvault/enginecore/util"
)

var _ Model = &PageCacheRows{}

// Page type discriminants stored in pagecache.type (spec.md §4.3 disk tier:
// a slot is either free, holding a content page, or holding a readahead
// page awaiting promotion).
const (
	PageTypeFree = iota
	PageTypeData
	PageTypeReadahead
)

// PageCacheRow mirrors one row of the pagecache(id, hash, pageid, type,
// lastuse, usecnt, size) table: the on-disk slot index backing PAGE_CACHE's
// disk tier (spec.md §4.3.1, §4.3.6).
type PageCacheRow struct {
	ID      int64
	Hash    string
	PageID  int64
	Type    int
	LastUse int64
	UseCnt  int64
	Size    int
}

// PageCacheRows is a Model over the pagecache table.
type PageCacheRows struct {
	insertFree  *sql.Stmt
	firstNFree  *sql.Stmt
	update      *sql.Stmt
	free        *sql.Stmt
	get         *sql.Stmt
	bumpUsage   *sql.Stmt
	readByType  *sql.Stmt
	countByType *sql.Stmt
	maxID       *sql.Stmt
	renameHash  *sql.Stmt
	deleteFrom  *sql.Stmt
}

func (p *PageCacheRows) Prepare(db *sql.DB, d SqlDialect) error {
	return prepareStmtPairs(db, stmtPairs{
		{&p.insertFree, d.InsertFreePageCacheRow()},
		{&p.firstNFree, d.FirstNFreePageCacheRows()},
		{&p.update, d.UpdatePageCacheRow()},
		{&p.free, d.FreePageCacheRow()},
		{&p.get, d.GetPageCacheRow()},
		{&p.bumpUsage, d.BumpPageCacheRowUsage()},
		{&p.readByType, d.ReadPageCacheRowsByType()},
		{&p.countByType, d.CountPageCacheRowsByType()},
		{&p.maxID, d.MaxPageCacheRowID()},
		{&p.renameHash, d.RenamePageCacheRowHash()},
		{&p.deleteFrom, d.DeletePageCacheRowsFrom()},
	})
}

func (p *PageCacheRows) CreateTable(tx *sql.Tx, d SqlDialect) error {
	_, err := tx.Exec(d.CreatePageCacheRowsTable())
	return err
}

func (p *PageCacheRows) Close() {
	p.insertFree.Close()
	p.firstNFree.Close()
	p.update.Close()
	p.free.Close()
	p.get.Close()
	p.bumpUsage.Close()
	p.readByType.Close()
	p.countByType.Close()
	p.maxID.Close()
	p.renameHash.Close()
	p.deleteFrom.Close()
}

// InsertFree appends a new free slot at id, growing the pagefile by one
// page (spec.md §4.3.6 — disk tier growth happens one slot at a time).
func (p *PageCacheRows) InsertFree(c util.Context, tx *sql.Tx, id int64) error {
	_, err := tx.Stmt(p.insertFree).ExecContext(c, id)
	return err
}

// FirstNFree returns up to limit free slot ids, ascending, for reuse before
// growing the pagefile.
func (p *PageCacheRows) FirstNFree(c util.Context, tx *sql.Tx, limit int) (ids []int64, err error) {
	rows, err := tx.Stmt(p.firstNFree).QueryContext(c, limit)
	if err != nil {
		return
	}
	defer rows.Close()
	err = doForRows(rows, func(r SingleRow) error {
		var id int64
		if e := r.Scan(&id); e != nil {
			return e
		}
		ids = append(ids, id)
		return nil
	})
	return
}

// Update overwrites slot id's metadata in place once its content changes
// (e.g. free -> data, or data -> readahead on eviction reuse).
func (p *PageCacheRows) Update(c util.Context, tx *sql.Tx, row *PageCacheRow) error {
	r, err := tx.Stmt(p.update).ExecContext(c, row.Type, row.Hash, row.PageID, row.LastUse, row.UseCnt, row.Size, row.ID)
	return mustChangeOneRow(r, err, "PageCacheRows.Update")
}

// Free marks slot id back to PageTypeFree.
func (p *PageCacheRows) Free(c util.Context, tx *sql.Tx, id int64) error {
	_, err := tx.Stmt(p.free).ExecContext(c, id)
	return err
}

// Get looks up the row holding (hash, pageID). Returns sql.ErrNoRows on a
// cache miss — the caller proceeds to network fetch (spec.md §4.3.2 step 3).
func (p *PageCacheRows) Get(c util.Context, tx *sql.Tx, hash string, pageID int64) (row PageCacheRow, err error) {
	rows, err := tx.Stmt(p.get).QueryContext(c, hash, pageID)
	if err != nil {
		return
	}
	defer rows.Close()
	row.Hash, row.PageID = hash, pageID
	err = enforceOneRow(rows, "PageCacheRows.Get", func(r SingleRow) error {
		return r.Scan(&row.ID, &row.LastUse, &row.UseCnt, &row.Size)
	})
	return
}

// BumpUsage updates a slot's lastuse timestamp and increments usecnt on
// every cache hit, feeding the aging sweep's LRU/LFU scoring (spec.md
// §4.3.6).
func (p *PageCacheRows) BumpUsage(c util.Context, tx *sql.Tx, id int64, lastUse int64) error {
	_, err := tx.Stmt(p.bumpUsage).ExecContext(c, lastUse, id)
	return err
}

// ReadByType returns every row of the given type, used by the aging sweep
// to load the data rows it ranks for eviction.
func (p *PageCacheRows) ReadByType(c util.Context, tx *sql.Tx, pageType int) (out []PageCacheRow, err error) {
	rows, err := tx.Stmt(p.readByType).QueryContext(c, pageType)
	if err != nil {
		return
	}
	defer rows.Close()
	err = doForRows(rows, func(r SingleRow) error {
		row := PageCacheRow{Type: pageType}
		if e := r.Scan(&row.ID, &row.Hash, &row.PageID, &row.LastUse, &row.UseCnt); e != nil {
			return e
		}
		out = append(out, row)
		return nil
	})
	return
}

// CountByType reports how many slots currently hold the given type.
func (p *PageCacheRows) CountByType(c util.Context, tx *sql.Tx, pageType int) (count int64, err error) {
	rows, err := tx.Stmt(p.countByType).QueryContext(c, pageType)
	if err != nil {
		return
	}
	defer rows.Close()
	err = enforceOneRow(rows, "PageCacheRows.CountByType", func(r SingleRow) error {
		return r.Scan(&count)
	})
	return
}

// MaxID returns the highest slot id currently allocated, or 0 if the table
// is empty, used to compute the next pagefile offset on growth.
func (p *PageCacheRows) MaxID(c util.Context, tx *sql.Tx) (id int64, err error) {
	rows, err := tx.Stmt(p.maxID).QueryContext(c)
	if err != nil {
		return
	}
	defer rows.Close()
	err = enforceOneRow(rows, "PageCacheRows.MaxID", func(r SingleRow) error {
		return r.Scan(&id)
	})
	return
}

// RenameHash retags every slot holding pageID under oldHash to newHash,
// used when a local write promotes a file and its content hash changes
// (spec.md §4.3.7).
func (p *PageCacheRows) RenameHash(c util.Context, tx *sql.Tx, newHash, oldHash string, pageID int64) error {
	_, err := tx.Stmt(p.renameHash).ExecContext(c, newHash, oldHash, pageID)
	return err
}

// DeleteFrom removes every slot at or beyond minID, shrinking the row table
// to match a pagefile truncation (spec.md §4.3.5 disk-full handling).
func (p *PageCacheRows) DeleteFrom(c util.Context, tx *sql.Tx, minID int64) error {
	_, err := tx.Stmt(p.deleteFrom).ExecContext(c, minID)
	return err
}
