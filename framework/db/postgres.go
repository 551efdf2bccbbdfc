package db

import (
	"github.com/cloudvault/enginecore/models"
)

var _ models.SqlDialect = &pgV0{}

// pgV0 is the first Postgres SqlDialect revision for this engine's six
// local tables. Grounded on go-fed/apcore/framework/db/postgres.go's
// schema-prefixed, positional-placeholder SQL string style.
type pgV0 struct {
	schema string
}

func NewPgV0(schema string) *pgV0 {
	p := &pgV0{
		schema: schema,
	}
	if p.schema == "" {
		p.schema = "public"
	}
	p.schema += "."
	return p
}

/* Table creation */

func (p *pgV0) CreateSettingsTable() string {
	return `
CREATE TABLE IF NOT EXISTS ` + p.schema + `setting
(
  id text PRIMARY KEY,
  value text NOT NULL
);`
}

func (p *pgV0) CreateCryptoFolderKeysTable() string {
	return `
CREATE TABLE IF NOT EXISTS ` + p.schema + `cryptofolderkey
(
  folderid bigint PRIMARY KEY,
  enckey bytea NOT NULL
);`
}

func (p *pgV0) CreateCryptoFileKeysTable() string {
	return `
CREATE TABLE IF NOT EXISTS ` + p.schema + `cryptofilekey
(
  fileid bigint PRIMARY KEY,
  enckey bytea NOT NULL
);`
}

func (p *pgV0) CreatePageCacheRowsTable() string {
	return `
CREATE TABLE IF NOT EXISTS ` + p.schema + `pagecache
(
  id bigint PRIMARY KEY,
  hash text NOT NULL DEFAULT '',
  pageid bigint NOT NULL DEFAULT 0,
  type smallint NOT NULL DEFAULT 0,
  lastuse bigint NOT NULL DEFAULT 0,
  usecnt bigint NOT NULL DEFAULT 0,
  size integer NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS pagecache_hash_pageid_index ON ` + p.schema + `pagecache (hash, pageid);
CREATE INDEX IF NOT EXISTS pagecache_type_index ON ` + p.schema + `pagecache (type);`
}

func (p *pgV0) CreatePageCacheTasksTable() string {
	return `
CREATE TABLE IF NOT EXISTS ` + p.schema + `pagecachetask
(
  id bigserial PRIMARY KEY,
  type smallint NOT NULL,
  taskid bigint NOT NULL,
  hash text NOT NULL DEFAULT '',
  oldhash text NOT NULL DEFAULT ''
);`
}

func (p *pgV0) CreateFsTasksTable() string {
	return `
CREATE TABLE IF NOT EXISTS ` + p.schema + `fstask
(
  id bigserial PRIMARY KEY,
  type smallint NOT NULL,
  fileid bigint NOT NULL,
  text2 text NOT NULL DEFAULT ''
);`
}

/* setting(id, value) */

func (p *pgV0) UpsertSetting() string {
	return `INSERT INTO ` + p.schema + `setting (id, value) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET value = EXCLUDED.value`
}

func (p *pgV0) GetSetting() string {
	return "SELECT value FROM " + p.schema + "setting WHERE id = $1"
}

func (p *pgV0) DeleteSetting() string {
	return "DELETE FROM " + p.schema + "setting WHERE id = $1"
}

/* cryptofolderkey(folderid, enckey) */

func (p *pgV0) UpsertCryptoFolderKey() string {
	return `INSERT INTO ` + p.schema + `cryptofolderkey (folderid, enckey) VALUES ($1, $2)
ON CONFLICT (folderid) DO UPDATE SET enckey = EXCLUDED.enckey`
}

func (p *pgV0) GetCryptoFolderKey() string {
	return "SELECT enckey FROM " + p.schema + "cryptofolderkey WHERE folderid = $1"
}

func (p *pgV0) DeleteCryptoFolderKey() string {
	return "DELETE FROM " + p.schema + "cryptofolderkey WHERE folderid = $1"
}

/* cryptofilekey(fileid, enckey) */

func (p *pgV0) UpsertCryptoFileKey() string {
	return `INSERT INTO ` + p.schema + `cryptofilekey (fileid, enckey) VALUES ($1, $2)
ON CONFLICT (fileid) DO UPDATE SET enckey = EXCLUDED.enckey`
}

func (p *pgV0) GetCryptoFileKey() string {
	return "SELECT enckey FROM " + p.schema + "cryptofilekey WHERE fileid = $1"
}

func (p *pgV0) DeleteCryptoFileKey() string {
	return "DELETE FROM " + p.schema + "cryptofilekey WHERE fileid = $1"
}

/* pagecache(id, hash, pageid, type, lastuse, usecnt, size) */

func (p *pgV0) InsertFreePageCacheRow() string {
	return `INSERT INTO ` + p.schema + `pagecache (id, type) VALUES ($1, 0)`
}

func (p *pgV0) FirstNFreePageCacheRows() string {
	return "SELECT id FROM " + p.schema + "pagecache WHERE type = 0 ORDER BY id ASC LIMIT $1"
}

func (p *pgV0) UpdatePageCacheRow() string {
	return `UPDATE ` + p.schema + `pagecache
SET type = $1, hash = $2, pageid = $3, lastuse = $4, usecnt = $5, size = $6
WHERE id = $7`
}

func (p *pgV0) FreePageCacheRow() string {
	return `UPDATE ` + p.schema + `pagecache
SET type = 0, hash = '', pageid = 0, lastuse = 0, usecnt = 0, size = 0
WHERE id = $1`
}

func (p *pgV0) GetPageCacheRow() string {
	return "SELECT id, lastuse, usecnt, size FROM " + p.schema + "pagecache WHERE hash = $1 AND pageid = $2"
}

func (p *pgV0) BumpPageCacheRowUsage() string {
	return `UPDATE ` + p.schema + `pagecache SET lastuse = $1, usecnt = usecnt + 1 WHERE id = $2`
}

func (p *pgV0) ReadPageCacheRowsByType() string {
	return "SELECT id, hash, pageid, lastuse, usecnt FROM " + p.schema + "pagecache WHERE type = $1"
}

func (p *pgV0) CountPageCacheRowsByType() string {
	return "SELECT count(*) FROM " + p.schema + "pagecache WHERE type = $1"
}

func (p *pgV0) MaxPageCacheRowID() string {
	return "SELECT coalesce(max(id), 0) FROM " + p.schema + "pagecache"
}

func (p *pgV0) RenamePageCacheRowHash() string {
	return `UPDATE ` + p.schema + `pagecache SET hash = $1 WHERE hash = $2 AND pageid = $3`
}

func (p *pgV0) DeletePageCacheRowsFrom() string {
	return "DELETE FROM " + p.schema + "pagecache WHERE id >= $1"
}

/* pagecachetask(id, type, taskid, hash, oldhash) */

func (p *pgV0) InsertPageCacheTask() string {
	return `INSERT INTO ` + p.schema + `pagecachetask (type, taskid, hash, oldhash) VALUES ($1, $2, $3, $4) RETURNING id`
}

func (p *pgV0) GetPageCacheTask() string {
	return "SELECT type, taskid, hash, oldhash FROM " + p.schema + "pagecachetask WHERE id = $1"
}

func (p *pgV0) DeletePageCacheTask() string {
	return "DELETE FROM " + p.schema + "pagecachetask WHERE id = $1"
}

func (p *pgV0) ListPageCacheTasks() string {
	return "SELECT id, type, taskid, hash, oldhash FROM " + p.schema + "pagecachetask"
}

/* fstask(id, type, fileid, text2) */

func (p *pgV0) InsertFsTask() string {
	return `INSERT INTO ` + p.schema + `fstask (type, fileid, text2) VALUES ($1, $2, $3) RETURNING id`
}

func (p *pgV0) GetFsTask() string {
	return "SELECT type, fileid, text2 FROM " + p.schema + "fstask WHERE id = $1"
}

func (p *pgV0) DeleteFsTask() string {
	return "DELETE FROM " + p.schema + "fstask WHERE id = $1"
}

func (p *pgV0) ListFsTasks() string {
	return "SELECT id, type, fileid, text2 FROM " + p.schema + "fstask"
}
