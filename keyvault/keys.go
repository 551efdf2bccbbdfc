package keyvault

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/cloudvault/enginecore/cachemanager"
	"github.com/cloudvault/enginecore/cryptoprims"
	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/util"
)

// CACHE_MANAGER key prefixes, per spec.md §4.2.3's resolution protocol:
// derived-codec entries first (FLDE/FLDD/SEEN), then wrapped-key entries
// (FKEY/DKEY).
const (
	prefixFolderEncoder = "FLDE"
	prefixFolderDecoder = "FLDD"
	prefixFileCodec     = "SEEN"
	prefixFolderKey     = "FKEY"
	prefixFileKey       = "DKEY"
)

func cacheKey(prefix string, id int64) string {
	return fmt.Sprintf("%s:%d", prefix, id)
}

// GetFolderEncoder vends a FolderCodec seeded by folderID's SymKey for
// encrypting directory entry names. Call the returned release func when
// done so the codec is returned to CACHE_MANAGER under its TTL instead of
// being discarded.
func (v *Vault) GetFolderEncoder(c util.Context, folderID int64) (codec *FolderCodec, release func(), err error) {
	return v.getFolderCodec(c, folderID, prefixFolderEncoder)
}

// GetFolderDecoder vends a FolderCodec for decoding directory entry names,
// cached independently of GetFolderEncoder per spec.md §4.2.3 step 1.
func (v *Vault) GetFolderDecoder(c util.Context, folderID int64) (codec *FolderCodec, release func(), err error) {
	return v.getFolderCodec(c, folderID, prefixFolderDecoder)
}

func (v *Vault) getFolderCodec(c util.Context, folderID int64, derivedPrefix string) (*FolderCodec, func(), error) {
	key := cacheKey(derivedPrefix, folderID)
	if cached, ok := v.cache.Get(key); ok {
		codec := cached.(*FolderCodec)
		return codec, func() { v.releaseFolderCodec(key, codec) }, nil
	}

	symKey, err := v.resolveFolderKey(c, folderID)
	if err != nil {
		return nil, nil, err
	}
	codec := newFolderCodec(symKey)
	return codec, func() { v.releaseFolderCodec(key, codec) }, nil
}

func (v *Vault) releaseFolderCodec(key string, codec *FolderCodec) {
	ttl := time.Duration(v.cfg.DerivedKeyTTLSecs) * time.Second
	v.cache.Add(key, codec, ttl, nil, cachemanager.PriorityNormal)
}

// GetFileSectorCodec vends a FileSectorCodec for fileID's data (spec.md
// §4.2.3's get_file_sector_codec).
func (v *Vault) GetFileSectorCodec(c util.Context, fileID int64) (codec *FileSectorCodec, release func(), err error) {
	key := cacheKey(prefixFileCodec, fileID)
	if cached, ok := v.cache.Get(key); ok {
		codec := cached.(*FileSectorCodec)
		return codec, func() { v.releaseFileCodec(key, codec) }, nil
	}

	symKey, err := v.resolveFileKey(c, fileID)
	if err != nil {
		return nil, nil, err
	}
	codec = newFileSectorCodec(symKey)
	return codec, func() { v.releaseFileCodec(key, codec) }, nil
}

func (v *Vault) releaseFileCodec(key string, codec *FileSectorCodec) {
	ttl := time.Duration(v.cfg.DerivedKeyTTLSecs) * time.Second
	v.cache.Add(key, codec, ttl, nil, cachemanager.PriorityNormal)
}

// resolveFolderKey implements spec.md §4.2.3 steps 2-4 for a folder id:
// wrapped-key cache, then META_STORE, then API, RSA-decrypting and
// IS_DIR-validating the result. Negative ids (not-yet-uploaded staging
// folders) are not handled here — callers holding a staging folder key
// use GetStagingSymKey instead.
func (v *Vault) resolveFolderKey(c util.Context, folderID int64) (*SymKey, error) {
	_, priv, err := v.requireStarted()
	if err != nil {
		return nil, err
	}

	encSym, err := v.resolveFolderEncSym(c, folderID)
	if err != nil {
		return nil, err
	}
	return v.decryptSymKey(priv, encSym, true)
}

func (v *Vault) resolveFolderEncSym(c util.Context, folderID int64) ([]byte, error) {
	key := cacheKey(prefixFolderKey, folderID)
	if cached, ok := v.cache.Get(key); ok {
		return cached.([]byte), nil
	}

	tx, err := v.db.BeginTx(c, nil)
	if err != nil {
		return nil, errs.ErrIO.Wrap(err)
	}
	encSym, getErr := v.folderKeys.Get(c, tx, folderID)
	tx.Rollback()
	if getErr == nil {
		return encSym, nil
	}

	encSym, err = v.api.CryptoGetFolderKey(c, folderID)
	if err != nil {
		return nil, err
	}
	if err := v.persistFolderEncSym(c, folderID, encSym); err != nil {
		return nil, err
	}
	return encSym, nil
}

func (v *Vault) persistFolderEncSym(c util.Context, folderID int64, encSym []byte) error {
	tx, err := v.db.BeginTx(c, nil)
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}
	defer tx.Rollback()
	if err := v.folderKeys.Upsert(c, tx, folderID, encSym); err != nil {
		return errs.ErrIO.Wrap(err)
	}
	return tx.Commit()
}

// resolveFileKey mirrors resolveFolderKey for files.
func (v *Vault) resolveFileKey(c util.Context, fileID int64) (*SymKey, error) {
	_, priv, err := v.requireStarted()
	if err != nil {
		return nil, err
	}

	encSym, err := v.resolveFileEncSym(c, fileID)
	if err != nil {
		return nil, err
	}
	return v.decryptSymKey(priv, encSym, false)
}

func (v *Vault) resolveFileEncSym(c util.Context, fileID int64) ([]byte, error) {
	key := cacheKey(prefixFileKey, fileID)
	if cached, ok := v.cache.Get(key); ok {
		return cached.([]byte), nil
	}

	tx, err := v.db.BeginTx(c, nil)
	if err != nil {
		return nil, errs.ErrIO.Wrap(err)
	}
	encSym, getErr := v.fileKeys.Get(c, tx, fileID)
	tx.Rollback()
	if getErr == nil {
		return encSym, nil
	}

	encSym, err = v.api.CryptoGetFileKey(c, fileID)
	if err != nil {
		return nil, err
	}
	if err := v.persistFileEncSym(c, fileID, encSym); err != nil {
		return nil, err
	}
	return encSym, nil
}

func (v *Vault) persistFileEncSym(c util.Context, fileID int64, encSym []byte) error {
	tx, err := v.db.BeginTx(c, nil)
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}
	defer tx.Rollback()
	if err := v.fileKeys.Upsert(c, tx, fileID, encSym); err != nil {
		return errs.ErrIO.Wrap(err)
	}
	return tx.Commit()
}

// decryptSymKey RSA-decrypts encSym under priv and validates both the
// wire version and the IS_DIR flag against wantDir (spec.md §4.2.3 step
// 4). Both the folder and file paths reject on an IS_DIR mismatch.
func (v *Vault) decryptSymKey(priv *rsa.PrivateKey, encSym []byte, wantDir bool) (*SymKey, error) {
	plain, err := cryptoprims.DecryptOAEP(priv, encSym)
	if err != nil {
		return nil, err
	}
	return UnmarshalSymKey(plain, wantDir)
}

// GetStagingSymKey decrypts a not-yet-uploaded folder or file's wrapped
// key, held base64-encoded in fstask.text2 under taskID rather than
// fetchable from the API (spec.md §4.2.3, "Temporary (not-yet-uploaded)
// objects" — staging objects are identified by negative ids, and their
// wrapped key travels with the local task that will eventually upload
// them).
func (v *Vault) GetStagingSymKey(c util.Context, taskID int64, wantDir bool) (*SymKey, error) {
	_, priv, err := v.requireStarted()
	if err != nil {
		return nil, err
	}

	tx, err := v.db.BeginTx(c, nil)
	if err != nil {
		return nil, errs.ErrIO.Wrap(err)
	}
	task, err := v.fsTasks.Get(c, tx, taskID)
	tx.Rollback()
	if err != nil {
		return nil, errs.ErrFileNotFound.Wrap(err)
	}

	encSym, err := cryptoprims.FromBase64(task.Text2)
	if err != nil {
		return nil, errs.ErrUnknownKeyFormat.Wrap(err)
	}
	plain, err := cryptoprims.DecryptOAEP(priv, encSym)
	if err != nil {
		return nil, err
	}
	return UnmarshalSymKey(plain, wantDir)
}
