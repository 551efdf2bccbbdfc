package models

import (
	"database/sql"

	"github.com/cloudvault/enginecore/util"
)

var _ Model = &CryptoFolderKeys{}

// CryptoFolderKeys is a Model over the cryptofolderkey(folderid, enckey)
// table: the RSA-encrypted SymKey binding for each encrypted folder
// (spec.md §4.2.4 step 5, §6).
type CryptoFolderKeys struct {
	upsert *sql.Stmt
	get    *sql.Stmt
	del    *sql.Stmt
}

func (k *CryptoFolderKeys) Prepare(db *sql.DB, d SqlDialect) error {
	return prepareStmtPairs(db, stmtPairs{
		{&k.upsert, d.UpsertCryptoFolderKey()},
		{&k.get, d.GetCryptoFolderKey()},
		{&k.del, d.DeleteCryptoFolderKey()},
	})
}

func (k *CryptoFolderKeys) CreateTable(tx *sql.Tx, d SqlDialect) error {
	_, err := tx.Exec(d.CreateCryptoFolderKeysTable())
	return err
}

func (k *CryptoFolderKeys) Close() {
	k.upsert.Close()
	k.get.Close()
	k.del.Close()
}

// Upsert binds encKey (the RSA-encrypted SymKey, encSym) to folderID.
func (k *CryptoFolderKeys) Upsert(c util.Context, tx *sql.Tx, folderID int64, encKey []byte) error {
	_, err := tx.Stmt(k.upsert).ExecContext(c, folderID, encKey)
	return err
}

// Get fetches the encSym bound to folderID. Returns sql.ErrNoRows if absent
// — the caller falls back to the API per spec.md §4.2.3 step 2.
func (k *CryptoFolderKeys) Get(c util.Context, tx *sql.Tx, folderID int64) (encKey []byte, err error) {
	rows, err := tx.Stmt(k.get).QueryContext(c, folderID)
	if err != nil {
		return
	}
	defer rows.Close()
	err = enforceOneRow(rows, "CryptoFolderKeys.Get", func(r SingleRow) error {
		return r.Scan(&encKey)
	})
	return
}

// Delete removes the binding for folderID, e.g. on folder deletion.
func (k *CryptoFolderKeys) Delete(c util.Context, tx *sql.Tx, folderID int64) error {
	_, err := tx.Stmt(k.del).ExecContext(c, folderID)
	return err
}
