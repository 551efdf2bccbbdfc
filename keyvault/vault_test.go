package keyvault

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudvault/enginecore/cachemanager"
	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/framework/config"
	"github.com/cloudvault/enginecore/testsupport"
	"github.com/cloudvault/enginecore/util"
	"github.com/stretchr/testify/require"
)

// fakeKeyStore is an in-memory keyStore, letting vault_test.go exercise the
// Setup/Start/Stop/Reset lifecycle without a real *sql.DB or SQL driver.
type fakeKeyStore struct {
	mu              sync.Mutex
	privB64, pubB64 string
	hasKeys         bool
	expires         time.Time
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{}
}

func (s *fakeKeyStore) saveKeyRecords(c util.Context, privBlobB64, pubBlobB64 string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.privB64, s.pubB64, s.expires, s.hasKeys = privBlobB64, pubBlobB64, expires, true
	return nil
}

func (s *fakeKeyStore) loadKeyRecords(c util.Context) (privBlobB64, pubBlobB64 string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasKeys {
		return "", "", false
	}
	return s.privB64, s.pubB64, true
}

func (s *fakeKeyStore) loadExpiry(c util.Context) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expires
}

func (s *fakeKeyStore) clear(c util.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s = fakeKeyStore{}
	return nil
}

// newTestVault builds a Vault bypassing New, so no real *sql.DB is needed —
// keys.go's folder/file-key resolution is untouched by this lifecycle and
// stays nil here since none of these tests reach it.
func newTestVault(api *testsupport.FakeAPIClient) *Vault {
	return &Vault{
		api:   api,
		cache: cachemanager.NewManager(time.Minute),
		cfg:   config.DefaultCryptoConfig(),
		store: newFakeKeyStore(),
		st:    stateNotSetup,
	}
}

func TestVaultSetupStopStartRoundTrip(t *testing.T) {
	ctx := util.Background()
	api := testsupport.NewFakeAPIClient()
	v := newTestVault(api)

	require.NoError(t, v.Setup(ctx, "correct horse battery staple", []byte("hint")))
	require.False(t, v.IsStarted()) // Setup leaves the vault SETUP_IDLE, not STARTED
	origPub, origPriv, err := v.requireStarted()
	require.Error(t, err)
	require.Nil(t, origPub)
	require.Nil(t, origPriv)

	v.Stop()
	require.False(t, v.IsStarted())

	require.NoError(t, v.Start(ctx, "correct horse battery staple"))
	require.True(t, v.IsStarted())

	pub, priv, err := v.requireStarted()
	require.NoError(t, err)
	require.NotNil(t, pub)
	require.NotNil(t, priv)

	v.Stop()
	require.False(t, v.IsStarted())
	_, _, err = v.requireStarted()
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrNotStarted))
}

func TestVaultStartWrongPasswordFails(t *testing.T) {
	ctx := util.Background()
	api := testsupport.NewFakeAPIClient()
	v := newTestVault(api)

	require.NoError(t, v.Setup(ctx, "correct horse battery staple", []byte("hint")))
	v.Stop()

	err := v.Start(ctx, "wrong password entirely")
	require.Error(t, err)
	require.False(t, v.IsStarted())
}

func TestVaultResetClearsLocalState(t *testing.T) {
	ctx := util.Background()
	api := testsupport.NewFakeAPIClient()
	v := newTestVault(api)

	require.NoError(t, v.Setup(ctx, "correct horse battery staple", []byte("hint")))
	require.NoError(t, v.Reset(ctx))

	require.False(t, v.IsStarted())
	require.Error(t, v.Start(ctx, "correct horse battery staple"))
}
