package keyvault

import (
	"database/sql"
	"time"

	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/models"
	"github.com/cloudvault/enginecore/util"
)

// keyStore is the setting(id,value) persistence seam that Setup, Start,
// loadExpiry and Reset depend on, narrowed to exactly those four
// operations so a test can fake it without a real *sql.DB — the same
// narrow-interface decoupling the collab package uses for PAGE_CACHE's
// SYNC_ENGINE/FS_FRONTEND collaborators. keys.go's folder/file-key
// resolution is unrelated to this lifecycle and keeps using v.db directly.
type keyStore interface {
	// saveKeyRecords persists the four local key-setup rows in one
	// transaction (spec.md §4.2.1 step 7).
	saveKeyRecords(c util.Context, privBlobB64, pubBlobB64 string, expires time.Time) error
	// loadKeyRecords returns the locally persisted key blobs. ok is false
	// if either is missing, signaling the caller should refetch from the
	// API (spec.md §4.2.2 step 1).
	loadKeyRecords(c util.Context) (privBlobB64, pubBlobB64 string, ok bool)
	// loadExpiry returns the locally persisted expiry marker, or the zero
	// time if absent or unparseable.
	loadExpiry(c util.Context) time.Time
	// clear deletes every locally persisted crypto setting row (spec.md
	// §4.2.4's reset).
	clear(c util.Context) error
}

// sqlKeyStore is the production keyStore, backed by models.Settings.
type sqlKeyStore struct {
	db       *sql.DB
	settings *models.Settings
}

func newSQLKeyStore(db *sql.DB, settings *models.Settings) *sqlKeyStore {
	return &sqlKeyStore{db: db, settings: settings}
}

func (s *sqlKeyStore) saveKeyRecords(c util.Context, privBlobB64, pubBlobB64 string, expires time.Time) error {
	tx, err := s.db.BeginTx(c, nil)
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}
	defer tx.Rollback()

	if err := s.settings.Set(c, tx, settingCryptoPrivateKey, privBlobB64); err != nil {
		return errs.ErrIO.Wrap(err)
	}
	if err := s.settings.Set(c, tx, settingCryptoPublicKey, pubBlobB64); err != nil {
		return errs.ErrIO.Wrap(err)
	}
	if err := s.settings.Set(c, tx, settingCryptoSetup, settingValueTrue); err != nil {
		return errs.ErrIO.Wrap(err)
	}
	if err := s.settings.Set(c, tx, settingCryptoExpires, formatUnix(expires)); err != nil {
		return errs.ErrIO.Wrap(err)
	}
	if err := tx.Commit(); err != nil {
		return errs.ErrIO.Wrap(err)
	}
	return nil
}

func (s *sqlKeyStore) loadKeyRecords(c util.Context) (privBlobB64, pubBlobB64 string, ok bool) {
	tx, err := s.db.BeginTx(c, nil)
	if err != nil {
		return "", "", false
	}
	defer tx.Rollback()
	priv, errPriv := s.settings.Get(c, tx, settingCryptoPrivateKey)
	pub, errPub := s.settings.Get(c, tx, settingCryptoPublicKey)
	if errPriv != nil || errPub != nil {
		return "", "", false
	}
	return priv, pub, true
}

func (s *sqlKeyStore) loadExpiry(c util.Context) time.Time {
	tx, err := s.db.BeginTx(c, nil)
	if err != nil {
		return time.Time{}
	}
	defer tx.Rollback()
	raw, err := s.settings.Get(c, tx, settingCryptoExpires)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *sqlKeyStore) clear(c util.Context) error {
	tx, err := s.db.BeginTx(c, nil)
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}
	defer tx.Rollback()
	for _, id := range []string{settingCryptoPrivateKey, settingCryptoPublicKey, settingCryptoSetup, settingCryptoExpires, settingCryptoPrivateSalt, settingCryptoPrivateIter} {
		if err := s.settings.Delete(c, tx, id); err != nil {
			return errs.ErrIO.Wrap(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.ErrIO.Wrap(err)
	}
	return nil
}
