package models

import (
	"database/sql"

	"github.com/cloudvault/enginecore/util"
)

var _ Model = &FsTasks{}

// Task kinds recorded against a local filesystem change still awaiting
// promotion into the page cache (spec.md §4.3.7: a brand new local file, or
// a modification to a file that already has cached content).
const (
	FsTaskNewFile = iota
	FsTaskModifiedFile
)

// FsTask mirrors one row of fstask(id, type, fileid, text2): a durable
// record that a local write has outpaced the page cache's view of a file,
// kept until the promotion step (spec.md §4.3.7) has reconciled them.
type FsTask struct {
	ID     int64
	Type   int
	FileID int64
	Text2  string
}

// FsTasks is a Model over the fstask table.
type FsTasks struct {
	insert  *sql.Stmt
	get     *sql.Stmt
	del     *sql.Stmt
	listAll *sql.Stmt
}

func (f *FsTasks) Prepare(db *sql.DB, d SqlDialect) error {
	return prepareStmtPairs(db, stmtPairs{
		{&f.insert, d.InsertFsTask()},
		{&f.get, d.GetFsTask()},
		{&f.del, d.DeleteFsTask()},
		{&f.listAll, d.ListFsTasks()},
	})
}

func (f *FsTasks) CreateTable(tx *sql.Tx, d SqlDialect) error {
	_, err := tx.Exec(d.CreateFsTasksTable())
	return err
}

func (f *FsTasks) Close() {
	f.insert.Close()
	f.get.Close()
	f.del.Close()
	f.listAll.Close()
}

// Insert records a new outstanding local-write promotion task.
func (f *FsTasks) Insert(c util.Context, tx *sql.Tx, task *FsTask) (id int64, err error) {
	rows, err := tx.Stmt(f.insert).QueryContext(c, task.Type, task.FileID, task.Text2)
	if err != nil {
		return
	}
	defer rows.Close()
	err = enforceOneRow(rows, "FsTasks.Insert", func(r SingleRow) error {
		return r.Scan(&id)
	})
	return
}

// Get fetches the task at id.
func (f *FsTasks) Get(c util.Context, tx *sql.Tx, id int64) (task FsTask, err error) {
	rows, err := tx.Stmt(f.get).QueryContext(c, id)
	if err != nil {
		return
	}
	defer rows.Close()
	task.ID = id
	err = enforceOneRow(rows, "FsTasks.Get", func(r SingleRow) error {
		return r.Scan(&task.Type, &task.FileID, &task.Text2)
	})
	return
}

// Delete removes the task at id once the promotion has been applied.
func (f *FsTasks) Delete(c util.Context, tx *sql.Tx, id int64) error {
	_, err := tx.Stmt(f.del).ExecContext(c, id)
	return err
}

// ListAll returns every outstanding local-write promotion task, used on
// startup to resume promotions an abrupt shutdown left incomplete
// (spec.md §4.3.7, §4.3.8).
func (f *FsTasks) ListAll(c util.Context, tx *sql.Tx) (out []FsTask, err error) {
	rows, err := tx.Stmt(f.listAll).QueryContext(c)
	if err != nil {
		return
	}
	defer rows.Close()
	err = doForRows(rows, func(r SingleRow) error {
		var task FsTask
		if e := r.Scan(&task.ID, &task.Type, &task.FileID, &task.Text2); e != nil {
			return e
		}
		out = append(out, task)
		return nil
	})
	return
}
