package models

import (
	"database/sql"

	"github.com/cloudvault/enginecore/util"
)

var _ Model = &PageCacheTasks{}

// Background task kinds the flush/aging cycle persists across crashes
// (spec.md §4.3.8 crash recovery): a pending write-back, a rename of a
// cached hash, or a deletion of cached content.
const (
	PageCacheTaskWrite = iota
	PageCacheTaskRename
	PageCacheTaskDelete
)

// PageCacheTask mirrors one row of pagecachetask(id, type, taskid, hash,
// oldhash): a durable record of disk-tier work still outstanding when the
// process last stopped.
type PageCacheTask struct {
	ID      int64
	Type    int
	TaskID  int64
	Hash    string
	OldHash string
}

// PageCacheTasks is a Model over the pagecachetask table.
type PageCacheTasks struct {
	insert  *sql.Stmt
	get     *sql.Stmt
	del     *sql.Stmt
	listAll *sql.Stmt
}

func (t *PageCacheTasks) Prepare(db *sql.DB, d SqlDialect) error {
	return prepareStmtPairs(db, stmtPairs{
		{&t.insert, d.InsertPageCacheTask()},
		{&t.get, d.GetPageCacheTask()},
		{&t.del, d.DeletePageCacheTask()},
		{&t.listAll, d.ListPageCacheTasks()},
	})
}

func (t *PageCacheTasks) CreateTable(tx *sql.Tx, d SqlDialect) error {
	_, err := tx.Exec(d.CreatePageCacheTasksTable())
	return err
}

func (t *PageCacheTasks) Close() {
	t.insert.Close()
	t.get.Close()
	t.del.Close()
	t.listAll.Close()
}

// Insert records a new outstanding task, returning its id so the caller can
// later Delete it once the work completes.
func (t *PageCacheTasks) Insert(c util.Context, tx *sql.Tx, task *PageCacheTask) (id int64, err error) {
	rows, err := tx.Stmt(t.insert).QueryContext(c, task.Type, task.TaskID, task.Hash, task.OldHash)
	if err != nil {
		return
	}
	defer rows.Close()
	err = enforceOneRow(rows, "PageCacheTasks.Insert", func(r SingleRow) error {
		return r.Scan(&id)
	})
	return
}

// Get fetches the task at id, used on startup to replay unfinished work
// (spec.md §4.3.8).
func (t *PageCacheTasks) Get(c util.Context, tx *sql.Tx, id int64) (task PageCacheTask, err error) {
	rows, err := tx.Stmt(t.get).QueryContext(c, id)
	if err != nil {
		return
	}
	defer rows.Close()
	task.ID = id
	err = enforceOneRow(rows, "PageCacheTasks.Get", func(r SingleRow) error {
		return r.Scan(&task.Type, &task.TaskID, &task.Hash, &task.OldHash)
	})
	return
}

// Delete removes the task at id once it has been completed.
func (t *PageCacheTasks) Delete(c util.Context, tx *sql.Tx, id int64) error {
	_, err := tx.Stmt(t.del).ExecContext(c, id)
	return err
}

// ListAll returns every outstanding task, used once on startup to replay
// work left unfinished by an abrupt shutdown (spec.md §4.3.8).
func (t *PageCacheTasks) ListAll(c util.Context, tx *sql.Tx) (out []PageCacheTask, err error) {
	rows, err := tx.Stmt(t.listAll).QueryContext(c)
	if err != nil {
		return
	}
	defer rows.Close()
	err = doForRows(rows, func(r SingleRow) error {
		var task PageCacheTask
		if e := r.Scan(&task.ID, &task.Type, &task.TaskID, &task.Hash, &task.OldHash); e != nil {
			return e
		}
		out = append(out, task)
		return nil
	})
	return
}
