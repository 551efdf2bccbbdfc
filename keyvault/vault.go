// Package keyvault implements KEY_VAULT: the password-derived RSA key
// hierarchy, per-folder/per-file symmetric keys, and the filename/content
// codecs built on top of them. Grounded on go-fed-apcore/services's key
// management shape (services/private_keys.go), generalized from a single
// server keypair to a per-user setup/start/stop/reset lifecycle.
package keyvault

import (
	"crypto/rsa"
	"database/sql"
	"math/big"
	"sync"
	"time"

	"github.com/cloudvault/enginecore/cryptoprims"
	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/framework/conn"
	"github.com/cloudvault/enginecore/models"
	"github.com/cloudvault/enginecore/util"

	"github.com/cloudvault/enginecore/cachemanager"
	"github.com/cloudvault/enginecore/framework/config"
)

// Settings ids for the four locally persisted key records plus the setup
// bookkeeping entries, matching spec.md §6's setting(id,value) rows.
const (
	settingCryptoSetup       = "cryptosetup"
	settingCryptoExpires     = "cryptoexpires"
	settingCryptoPrivateKey  = "crypto_private_key"
	settingCryptoPublicKey   = "crypto_public_key"
	settingCryptoPrivateSalt = "crypto_private_salt"
	settingCryptoPrivateIter = "crypto_private_iter"
	settingValueTrue         = "1"
)

// state is the KEY_VAULT lifecycle's current phase (spec.md §4.2.5).
type state int

const (
	stateNotSetup state = iota
	stateSetupIdle
	stateStarted
)

// Vault owns the user's asymmetric keypair once started and vends
// per-folder/per-file codecs derived from it. cryptoLock (crypto_lock)
// guards state and the key handles; reads of the started keypair
// take the read lock, the setup/start/stop/reset transitions take the
// write lock (spec.md §5).
type Vault struct {
	db         *sql.DB
	folderKeys *models.CryptoFolderKeys
	fileKeys   *models.CryptoFileKeys
	fsTasks    *models.FsTasks
	api        conn.APIClient
	cache      *cachemanager.Manager
	cfg        config.CryptoConfig
	store      keyStore

	cryptoLock sync.RWMutex
	st         state
	pub        *rsa.PublicKey
	priv       *rsa.PrivateKey
	expires    time.Time
}

// New constructs a Vault. The caller prepares/owns db and the Model
// handles; New does not create tables or run migrations.
func New(db *sql.DB, settings *models.Settings, folderKeys *models.CryptoFolderKeys, fileKeys *models.CryptoFileKeys, fsTasks *models.FsTasks, api conn.APIClient, cache *cachemanager.Manager, cfg config.CryptoConfig) *Vault {
	return &Vault{
		db:         db,
		folderKeys: folderKeys,
		fileKeys:   fileKeys,
		fsTasks:    fsTasks,
		api:        api,
		cache:      cache,
		cfg:        cfg,
		store:      newSQLKeyStore(db, settings),
		st:         stateNotSetup,
	}
}

// IsStarted reports whether the vault currently holds an unlocked keypair.
func (v *Vault) IsStarted() bool {
	v.cryptoLock.RLock()
	defer v.cryptoLock.RUnlock()
	return v.st == stateStarted
}

// Setup provisions a brand-new keypair for the user (spec.md §4.2.1).
// It returns ErrAlreadySetUp when this Vault is not in the NOT_SETUP
// state. An error from the API, including a report that the user already
// has keys, is returned as the API client reports it; it is not mapped to
// ErrAlreadySetUp.
func (v *Vault) Setup(c util.Context, password string, hint []byte) error {
	v.cryptoLock.Lock()
	defer v.cryptoLock.Unlock()

	if v.st != stateNotSetup {
		return errs.ErrAlreadySetUp
	}

	salt, err := cryptoprims.RandomBytes(v.cfg.SaltSize)
	if err != nil {
		return err
	}
	aesKey, iv := cryptoprims.DeriveWrapper(password, salt, v.cfg.PBKDF2Iterations)

	rsaKey, err := cryptoprims.GenerateRSAKeyPair()
	if err != nil {
		return err
	}
	privBin, err := cryptoprims.SerializeRSAPrivateKey(rsaKey)
	if err != nil {
		return err
	}
	pubBin, err := cryptoprims.SerializeRSAPublicKey(&rsaKey.PublicKey)
	if err != nil {
		return err
	}

	ciphertext, err := cryptoprims.CTRTransform(aesKey, iv, privBin)
	if err != nil {
		return err
	}
	cryptoprims.Wipe(privBin)

	privBlob := MarshalPrivBlob(salt, ciphertext)
	pubBlob := MarshalPubBlob(pubBin)

	if err := v.api.CryptoSetUserKeys(c, []byte(cryptoprims.ToBase64(privBlob)), []byte(cryptoprims.ToBase64(pubBlob)), hint); err != nil {
		return err
	}

	// crypto_setuserkeys does not return a server-assigned expiry, so the
	// zero time is recorded, meaning no expiry is enforced.
	expires := time.Time{}
	if err := v.persistKeyRecords(c, privBlob, pubBlob, expires); err != nil {
		return err
	}

	v.pub = &rsaKey.PublicKey
	v.priv = rsaKey
	v.expires = expires
	v.st = stateSetupIdle
	return nil
}

// persistKeyRecords writes four setting rows (the private and public key
// blobs plus the setup and expiry markers) inside a single transaction (spec.md §4.2.1 step 7).
func (v *Vault) persistKeyRecords(c util.Context, privBlob, pubBlob []byte, expires time.Time) error {
	return v.store.saveKeyRecords(c, cryptoprims.ToBase64(privBlob), cryptoprims.ToBase64(pubBlob), expires)
}

// Start unlocks the keypair for this session (spec.md §4.2.2).
func (v *Vault) Start(c util.Context, password string) error {
	v.cryptoLock.Lock()
	defer v.cryptoLock.Unlock()

	if v.st == stateStarted {
		return errs.ErrAlreadyStarted
	}

	privBlobB64, pubBlobB64, err := v.loadOrFetchKeyRecords(c)
	if err != nil {
		return err
	}

	privBlob, err := cryptoprims.FromBase64(privBlobB64)
	if err != nil {
		return errs.ErrUnknownKeyFormat.Wrap(err)
	}
	pubBlob, err := cryptoprims.FromBase64(pubBlobB64)
	if err != nil {
		return errs.ErrUnknownKeyFormat.Wrap(err)
	}

	pubBin, err := UnmarshalPubBlob(pubBlob)
	if err != nil {
		return err
	}
	pub, err := cryptoprims.ParseRSAPublicKey(pubBin)
	if err != nil {
		return err
	}

	salt, ciphertext, err := UnmarshalPrivBlob(privBlob)
	if err != nil {
		return err
	}
	aesKey, iv := cryptoprims.DeriveWrapper(password, salt, v.cfg.PBKDF2Iterations)
	privBin, err := cryptoprims.CTRTransform(aesKey, iv, ciphertext)
	if err != nil {
		return err
	}
	priv, err := cryptoprims.ParseRSAPrivateKey(privBin)
	cryptoprims.Wipe(privBin)
	if err != nil {
		return err
	}

	if err := cryptoprims.VerifyKeyPair(pub, priv); err != nil {
		return err
	}

	v.pub = pub
	v.priv = priv
	v.st = stateStarted
	v.expires = v.loadExpiry(c)
	return nil
}

// loadExpiry reads the locally persisted expiry marker; a missing or
// unparseable record means no expiry is enforced.
func (v *Vault) loadExpiry(c util.Context) time.Time {
	return v.store.loadExpiry(c)
}

// loadOrFetchKeyRecords loads the locally persisted private and public key
// blobs if both are present, otherwise redownloads and persists them
// (spec.md §4.2.2 step 1: "tolerate partial local state by redownloading").
// The API holds the blobs base64-encoded, exactly as Setup uploaded them.
func (v *Vault) loadOrFetchKeyRecords(c util.Context) (privBlobB64, pubBlobB64 string, err error) {
	if priv, pub, ok := v.store.loadKeyRecords(c); ok {
		return priv, pub, nil
	}

	privateKey, publicKey, err := v.api.CryptoGetUserKeys(c)
	if err != nil {
		return "", "", err
	}
	if err := v.store.saveKeyRecords(c, string(privateKey), string(publicKey), time.Time{}); err != nil {
		return "", "", err
	}
	return string(privateKey), string(publicKey), nil
}

// Stop idempotently zeroes the private key material and returns the vault
// to SETUP_IDLE (spec.md §4.2.5: "stop() is idempotent and must zero the
// private key material").
func (v *Vault) Stop() {
	v.cryptoLock.Lock()
	defer v.cryptoLock.Unlock()

	if v.priv != nil {
		secrets := []*big.Int{v.priv.D, v.priv.Precomputed.Dp, v.priv.Precomputed.Dq, v.priv.Precomputed.Qinv}
		for _, n := range append(secrets, v.priv.Primes...) {
			if n == nil {
				continue
			}
			words := n.Bits()
			for i := range words {
				words[i] = 0
			}
			n.SetInt64(0)
		}
		v.priv = nil
	}
	v.pub = nil
	if v.st == stateStarted {
		v.st = stateSetupIdle
	}
}

// Reset requests server-side destruction of the user's key set. It does
// not require the vault to be stopped first (an explicit design decision:
// the original protocol allows reset while started, since the server side
// owns key destruction and the local state is discarded regardless).
func (v *Vault) Reset(c util.Context) error {
	if err := v.api.CryptoReset(c); err != nil {
		return err
	}

	v.cryptoLock.Lock()
	defer v.cryptoLock.Unlock()

	if v.priv != nil {
		cryptoprims.Wipe(v.priv.D.Bytes())
	}
	v.priv = nil
	v.pub = nil
	v.st = stateNotSetup

	return v.store.clear(c)
}

// requireStarted returns ErrNotStarted unless the vault currently holds
// an unlocked keypair, and ErrExpired if local setup has expired (spec.md
// §4.2.5: "while setup exists but is expired, encryption operations fail
// cleanly").
func (v *Vault) requireStarted() (*rsa.PublicKey, *rsa.PrivateKey, error) {
	v.cryptoLock.RLock()
	defer v.cryptoLock.RUnlock()
	if v.st != stateStarted {
		return nil, nil, errs.ErrNotStarted
	}
	if !v.expires.IsZero() && time.Now().After(v.expires) {
		return nil, nil, errs.ErrExpired
	}
	return v.pub, v.priv, nil
}

func formatUnix(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return time.Unix(t.Unix(), 0).UTC().Format(time.RFC3339)
}
