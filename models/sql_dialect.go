package models

// SqlDialect is a SQL dialect provider for the six tables this engine owns
// locally (spec.md §6). Grounded on go-fed/apcore/models/sql_dialect.go's
// shape: one interface, one method per prepared statement, params/returns
// documented above each method since order matters for positional binds.
type SqlDialect interface {
	/* Table creation */

	// CreateSettingsTable for the Settings model.
	CreateSettingsTable() string
	// CreateCryptoFolderKeysTable for the CryptoFolderKeys model.
	CreateCryptoFolderKeysTable() string
	// CreateCryptoFileKeysTable for the CryptoFileKeys model.
	CreateCryptoFileKeysTable() string
	// CreatePageCacheRowsTable for the PageCacheRows model.
	CreatePageCacheRowsTable() string
	// CreatePageCacheTasksTable for the PageCacheTasks model.
	CreatePageCacheTasksTable() string
	// CreateFsTasksTable for the FsTasks model.
	CreateFsTasksTable() string

	/* setting(id, value) */

	// UpsertSetting:
	//  Params: ID string, Value string
	UpsertSetting() string
	// GetSetting:
	//  Params: ID string
	//  Returns: Value string
	GetSetting() string
	// DeleteSetting:
	//  Params: ID string
	DeleteSetting() string

	/* cryptofolderkey(folderid, enckey) */

	// UpsertCryptoFolderKey:
	//  Params: FolderID int64, EncKey []byte
	UpsertCryptoFolderKey() string
	// GetCryptoFolderKey:
	//  Params: FolderID int64
	//  Returns: EncKey []byte
	GetCryptoFolderKey() string
	// DeleteCryptoFolderKey:
	//  Params: FolderID int64
	DeleteCryptoFolderKey() string

	/* cryptofilekey(fileid, enckey) */

	// UpsertCryptoFileKey:
	//  Params: FileID int64, EncKey []byte
	UpsertCryptoFileKey() string
	// GetCryptoFileKey:
	//  Params: FileID int64
	//  Returns: EncKey []byte
	GetCryptoFileKey() string
	// DeleteCryptoFileKey:
	//  Params: FileID int64
	DeleteCryptoFileKey() string

	/* pagecache(id, hash, pageid, type, lastuse, usecnt, size) */

	// InsertFreePageCacheRow:
	//  Params: ID int64
	InsertFreePageCacheRow() string
	// FirstNFreePageCacheRows:
	//  Params: Limit int
	//  Returns: ID int64
	FirstNFreePageCacheRows() string
	// UpdatePageCacheRow:
	//  Params: Type int, Hash string, PageID int64, LastUse int64, UseCnt int64, Size int, ID int64
	UpdatePageCacheRow() string
	// FreePageCacheRow:
	//  Params: ID int64
	FreePageCacheRow() string
	// GetPageCacheRow:
	//  Params: Hash string, PageID int64
	//  Returns: ID int64, LastUse int64, UseCnt int64, Size int
	GetPageCacheRow() string
	// BumpPageCacheRowUsage:
	//  Params: LastUse int64, ID int64
	BumpPageCacheRowUsage() string
	// ReadPageCacheRowsByType:
	//  Params: Type int
	//  Returns: ID int64, Hash string, PageID int64, LastUse int64, UseCnt int64
	ReadPageCacheRowsByType() string
	// CountPageCacheRowsByType:
	//  Params: Type int
	//  Returns: Count int64
	CountPageCacheRowsByType() string
	// MaxPageCacheRowID:
	//  Returns: ID int64
	MaxPageCacheRowID() string
	// RenamePageCacheRowHash:
	//  Params: NewHash string, OldHash string, PageID int64
	RenamePageCacheRowHash() string
	// DeletePageCacheRowsFrom removes every slot at or beyond MinID, used to
	// shrink the pagefile on disk-full (spec.md §4.3.5).
	//  Params: MinID int64
	DeletePageCacheRowsFrom() string

	/* pagecachetask(id, type, taskid, hash, oldhash) */

	// InsertPageCacheTask:
	//  Params: Type int, TaskID int64, Hash string, OldHash string
	//  Returns: ID int64
	InsertPageCacheTask() string
	// GetPageCacheTask:
	//  Params: ID int64
	//  Returns: Type int, TaskID int64, Hash string, OldHash string
	GetPageCacheTask() string
	// DeletePageCacheTask:
	//  Params: ID int64
	DeletePageCacheTask() string
	// ListPageCacheTasks:
	//  Returns: ID int64, Type int, TaskID int64, Hash string, OldHash string
	ListPageCacheTasks() string

	/* fstask(id, type, fileid, text2) */

	// InsertFsTask:
	//  Params: Type int, FileID int64, Text2 string
	//  Returns: ID int64
	InsertFsTask() string
	// GetFsTask:
	//  Params: ID int64
	//  Returns: Type int, FileID int64, Text2 string
	GetFsTask() string
	// DeleteFsTask:
	//  Params: ID int64
	DeleteFsTask() string
	// ListFsTasks:
	//  Returns: ID int64, Type int, FileID int64, Text2 string
	ListFsTasks() string
}
