package cryptoprims

import (
	"errors"
	"testing"

	"github.com/cloudvault/enginecore/errs"
	"github.com/stretchr/testify/require"
)

func TestRSARoundTripAndVerify(t *testing.T) {
	k, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	require.NoError(t, VerifyKeyPair(&k.PublicKey, k))

	priv, err := SerializeRSAPrivateKey(k)
	require.NoError(t, err)
	parsed, err := ParseRSAPrivateKey(priv)
	require.NoError(t, err)
	require.NoError(t, VerifyKeyPair(&parsed.PublicKey, parsed))

	pub, err := SerializeRSAPublicKey(&k.PublicKey)
	require.NoError(t, err)
	parsedPub, err := ParseRSAPublicKey(pub)
	require.NoError(t, err)

	plaintext := []byte("hello")
	ct, err := EncryptOAEP(parsedPub, plaintext)
	require.NoError(t, err)
	pt, err := DecryptOAEP(parsed, ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}

func TestParseRSAPrivateKeyGarbageIsBadPassword(t *testing.T) {
	_, err := ParseRSAPrivateKey([]byte("not a key"))
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrBadPassword))
}

func TestAESCTRIsInvolution(t *testing.T) {
	key, err := RandomBytes(AESKeySize)
	require.NoError(t, err)
	iv, err := RandomBytes(AESIVSize)
	require.NoError(t, err)

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	ct, err := CTRTransform(key, iv, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ct)

	pt, err := CTRTransform(key, iv, ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}

func TestDeriveWrapperIsDeterministic(t *testing.T) {
	salt := make([]byte, 64)
	for i := range salt {
		salt[i] = 1
	}
	k1, iv1 := DeriveWrapper("correct horse battery staple", salt, DefaultIterations)
	k2, iv2 := DeriveWrapper("correct horse battery staple", salt, DefaultIterations)
	require.Equal(t, k1, k2)
	require.Equal(t, iv1, iv2)

	k3, _ := DeriveWrapper("correct horse battery stable", salt, DefaultIterations)
	require.NotEqual(t, k1, k3)
}

func TestBase32RoundTrip(t *testing.T) {
	b, err := RandomBytes(37)
	require.NoError(t, err)
	s := ToBase32(b)
	back, err := FromBase32(s)
	require.NoError(t, err)
	require.Equal(t, b, back)
}
