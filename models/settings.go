package models

import (
	"database/sql"

	"github.com/cloudvault/enginecore/util"
)

var _ Model = &Settings{}

// Settings is a Model over the setting(id, value) table: the local
// key/value store for crypto setup state (spec.md §6 — cryptosetup,
// cryptoexpires, crypto_private_key, crypto_public_key,
// crypto_private_salt, crypto_private_iter).
type Settings struct {
	upsert *sql.Stmt
	get    *sql.Stmt
	del    *sql.Stmt
}

func (s *Settings) Prepare(db *sql.DB, d SqlDialect) error {
	return prepareStmtPairs(db, stmtPairs{
		{&s.upsert, d.UpsertSetting()},
		{&s.get, d.GetSetting()},
		{&s.del, d.DeleteSetting()},
	})
}

func (s *Settings) CreateTable(tx *sql.Tx, d SqlDialect) error {
	_, err := tx.Exec(d.CreateSettingsTable())
	return err
}

func (s *Settings) Close() {
	s.upsert.Close()
	s.get.Close()
	s.del.Close()
}

// Set stores value under id, overwriting any existing value.
func (s *Settings) Set(c util.Context, tx *sql.Tx, id, value string) error {
	r, err := tx.Stmt(s.upsert).ExecContext(c, id, value)
	_, rerr := r.RowsAffected()
	if err == nil && rerr != nil {
		err = rerr
	}
	return err
}

// Get fetches the value stored under id. Returns sql.ErrNoRows if absent.
func (s *Settings) Get(c util.Context, tx *sql.Tx, id string) (value string, err error) {
	rows, err := tx.Stmt(s.get).QueryContext(c, id)
	if err != nil {
		return
	}
	defer rows.Close()
	err = enforceOneRow(rows, "Settings.Get", func(r SingleRow) error {
		return r.Scan(&value)
	})
	return
}

// Delete removes the value stored under id, if any.
func (s *Settings) Delete(c util.Context, tx *sql.Tx, id string) error {
	_, err := tx.Stmt(s.del).ExecContext(c, id)
	return err
}
