package keyvault

import (
	"testing"

	"github.com/cloudvault/enginecore/cryptoprims"
	"github.com/stretchr/testify/require"
)

func TestPrivBlobRoundTrip(t *testing.T) {
	salt, err := cryptoprims.RandomBytes(saltSize)
	require.NoError(t, err)
	ciphertext := []byte("pretend this is an encrypted PKCS8 key")

	blob := MarshalPrivBlob(salt, ciphertext)
	gotSalt, gotCiphertext, err := UnmarshalPrivBlob(blob)
	require.NoError(t, err)
	require.Equal(t, salt, gotSalt)
	require.Equal(t, ciphertext, gotCiphertext)
}

func TestPrivBlobTooShortRejected(t *testing.T) {
	_, _, err := UnmarshalPrivBlob([]byte("short"))
	require.Error(t, err)
}

func TestPubBlobRoundTrip(t *testing.T) {
	pubBin := []byte("pretend this is a PKIX public key")
	blob := MarshalPubBlob(pubBin)
	got, err := UnmarshalPubBlob(blob)
	require.NoError(t, err)
	require.Equal(t, pubBin, got)
}

func TestPubBlobTooShortRejected(t *testing.T) {
	_, err := UnmarshalPubBlob([]byte("x"))
	require.Error(t, err)
}
