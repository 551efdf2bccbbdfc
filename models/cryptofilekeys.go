package models

import (
	"database/sql"

	"github.com/cloudvault/enginecore/util"
)

var _ Model = &CryptoFileKeys{}

// CryptoFileKeys is a Model over the cryptofilekey(fileid, enckey) table:
// the RSA-encrypted SymKey binding for each encrypted file (spec.md §6).
type CryptoFileKeys struct {
	upsert *sql.Stmt
	get    *sql.Stmt
	del    *sql.Stmt
}

func (k *CryptoFileKeys) Prepare(db *sql.DB, d SqlDialect) error {
	return prepareStmtPairs(db, stmtPairs{
		{&k.upsert, d.UpsertCryptoFileKey()},
		{&k.get, d.GetCryptoFileKey()},
		{&k.del, d.DeleteCryptoFileKey()},
	})
}

func (k *CryptoFileKeys) CreateTable(tx *sql.Tx, d SqlDialect) error {
	_, err := tx.Exec(d.CreateCryptoFileKeysTable())
	return err
}

func (k *CryptoFileKeys) Close() {
	k.upsert.Close()
	k.get.Close()
	k.del.Close()
}

// Upsert binds encKey (encSym) to fileID.
func (k *CryptoFileKeys) Upsert(c util.Context, tx *sql.Tx, fileID int64, encKey []byte) error {
	_, err := tx.Stmt(k.upsert).ExecContext(c, fileID, encKey)
	return err
}

// Get fetches the encSym bound to fileID. Returns sql.ErrNoRows if absent.
func (k *CryptoFileKeys) Get(c util.Context, tx *sql.Tx, fileID int64) (encKey []byte, err error) {
	rows, err := tx.Stmt(k.get).QueryContext(c, fileID)
	if err != nil {
		return
	}
	defer rows.Close()
	err = enforceOneRow(rows, "CryptoFileKeys.Get", func(r SingleRow) error {
		return r.Scan(&encKey)
	})
	return
}

// Delete removes the binding for fileID.
func (k *CryptoFileKeys) Delete(c util.Context, tx *sql.Tx, fileID int64) error {
	_, err := tx.Stmt(k.del).ExecContext(c, fileID)
	return err
}
