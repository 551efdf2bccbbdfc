package keyvault

import (
	"errors"
	"testing"

	"github.com/cloudvault/enginecore/errs"
	"github.com/stretchr/testify/require"
)

func TestSymKeyRoundTrip(t *testing.T) {
	for _, isDir := range []bool{true, false} {
		k, err := NewSymKey(isDir)
		require.NoError(t, err)

		b := k.Marshal()
		require.Len(t, b, symKeySize)

		parsed, err := UnmarshalSymKey(b, isDir)
		require.NoError(t, err)
		require.Equal(t, k.AESKey, parsed.AESKey)
		require.Equal(t, k.HMACKey, parsed.HMACKey)
		require.Equal(t, isDir, parsed.IsDir)
	}
}

func TestSymKeyIsDirMismatchRejected(t *testing.T) {
	k, err := NewSymKey(true)
	require.NoError(t, err)
	b := k.Marshal()

	_, err = UnmarshalSymKey(b, false)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrInvalidKey))
}

func TestSymKeyWrongLengthRejected(t *testing.T) {
	_, err := UnmarshalSymKey([]byte("too short"), true)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrUnknownKeyFormat))
}

func TestSymKeyWrongVersionRejected(t *testing.T) {
	k, err := NewSymKey(true)
	require.NoError(t, err)
	b := k.Marshal()
	b[3] = 0xff // corrupt the low byte of the version field

	_, err = UnmarshalSymKey(b, true)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrUnknownKeyFormat))
}
