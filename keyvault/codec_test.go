package keyvault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFolderCodecRoundTrip(t *testing.T) {
	k, err := NewSymKey(true)
	require.NoError(t, err)
	codec := newFolderCodec(k)

	for _, name := range []string{"Documents", "résumé.pdf", "a"} {
		encoded, err := codec.EncodeName(name)
		require.NoError(t, err)
		require.NotEqual(t, name, encoded)

		decoded, err := codec.DecodeName(encoded)
		require.NoError(t, err)
		require.Equal(t, name, decoded)
	}
}

func TestFolderCodecEncodingIsDeterministic(t *testing.T) {
	k, err := NewSymKey(true)
	require.NoError(t, err)
	codec := newFolderCodec(k)

	a, err := codec.EncodeName("same-name")
	require.NoError(t, err)
	b, err := codec.EncodeName("same-name")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestFileSectorCodecRoundTrip(t *testing.T) {
	k, err := NewSymKey(false)
	require.NoError(t, err)
	codec := newFileSectorCodec(k)

	plaintext := []byte("sector payload bytes, arbitrary content")
	ct, err := codec.EncodeSector(3, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ct)

	pt, err := codec.DecodeSector(3, ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}

func TestFileSectorCodecDiffersPerSector(t *testing.T) {
	k, err := NewSymKey(false)
	require.NoError(t, err)
	codec := newFileSectorCodec(k)

	plaintext := make([]byte, 32)
	ctA, err := codec.EncodeSector(0, plaintext)
	require.NoError(t, err)
	ctB, err := codec.EncodeSector(1, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, ctA, ctB)
}
