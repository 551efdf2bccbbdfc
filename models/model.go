// Package models is the META_STORE backing for this engine's own local
// tables (spec.md §6): setting, cryptofolderkey, cryptofilekey, pagecache,
// pagecachetask, fstask. It does not persist SYNC_ENGINE or FS_FRONTEND
// metadata — that remains an external collaborator's concern.
//
// Grounded on go-fed/apcore/models' prepareStmtPairs/enforceOneRow/
// mustChangeOneRow pattern, narrowed to these six tables.
package models

import (
	"database/sql"
	"fmt"

	"github.com/cloudvault/enginecore/util"
)

// Model handles managing a single database table.
type Model interface {
	Prepare(*sql.DB, SqlDialect) error
	CreateTable(*sql.Tx, SqlDialect) error
	Close()
}

// SingleRow allows *sql.Rows to be scanned the same way as *sql.Row.
type SingleRow interface {
	Scan(dest ...interface{}) error
}

// stmtPair maps a **sql.Stmt to the SQL string used to prepare it.
type stmtPair struct {
	stmt   **sql.Stmt
	sqlStr string
}

type stmtPairs []stmtPair

// prepareStmtPair populates a single stmtPair's *sql.Stmt.
func prepareStmtPair(db *sql.DB, s stmtPair) (err error) {
	*s.stmt, err = db.Prepare(s.sqlStr)
	return err
}

// prepareStmtPairs populates every stmt in s, short-circuiting on the first
// error.
func prepareStmtPairs(db *sql.DB, s stmtPairs) (err error) {
	doIfNoErr := func(p stmtPair, fn func(*sql.DB, stmtPair) error) error {
		if err == nil {
			return fn(db, p)
		}
		return err
	}
	for _, p := range s {
		err = doIfNoErr(p, prepareStmtPair)
	}
	return
}

// enforceOneRow ensures exactly one row is present in r, invoking fn with
// it. Zero or more-than-one rows is a logic error worth surfacing loudly
// rather than silently taking the first row, since a cache-key or id
// column should never be ambiguous.
func enforceOneRow(r *sql.Rows, debugName string, fn func(r SingleRow) error) error {
	var n int
	for r.Next() {
		if n > 0 {
			return fmt.Errorf("%s: multiple rows retrieved when enforcing one row", debugName)
		}
		if err := fn(SingleRow(r)); err != nil {
			return err
		}
		n++
	}
	if err := r.Err(); err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// doForRows iterates every row in r, invoking fn for each.
func doForRows(r *sql.Rows, fn func(r SingleRow) error) error {
	for r.Next() {
		if err := fn(SingleRow(r)); err != nil {
			return err
		}
	}
	return r.Err()
}

// mustChangeOneRow ensures an Exec statement changed exactly one row.
func mustChangeOneRow(r sql.Result, existing error, name string) error {
	if existing != nil {
		return existing
	}
	n, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%s: changed %d rows instead of 1", name, n)
	}
	return nil
}

// doInTx wraps fn in a single database transaction, rolling back on any
// error (the deferred Rollback is a no-op after a successful Commit).
func doInTx(c util.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(c, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// DoInTx exposes doInTx for use outside this package — the page cache's
// flush cycle needs a single transaction spanning several Models.
func DoInTx(c util.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return doInTx(c, db, fn)
}
