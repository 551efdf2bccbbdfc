package cryptoprims

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/cloudvault/enginecore/errs"
)

// AESKeySize is the symmetric key size used throughout (spec.md §3:
// "AES-256-CTR").
const AESKeySize = 32

// AESIVSize is the CTR nonce size, equal to the AES block size.
const AESIVSize = aes.BlockSize

// NewCTRStream builds an AES-256-CTR keystream cipher.Stream for the given
// key and IV. Both encode and decode are the same XOR operation under CTR
// mode, matching spec.md §4.2.1 step 4's "encode priv_bin with AES-256-CTR".
func NewCTRStream(key, iv []byte) (cipher.Stream, error) {
	if len(key) != AESKeySize {
		return nil, errs.ErrInvalidKey.WithDetail("AES key must be 32 bytes")
	}
	if len(iv) != AESIVSize {
		return nil, errs.ErrInvalidKey.WithDetail("AES IV must be 16 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.ErrInvalidKey.Wrap(err)
	}
	return cipher.NewCTR(block, iv), nil
}

// CTRTransform encodes or decodes src into dst in place using AES-256-CTR;
// CTR mode is an involution, so this single function serves both
// directions as spec.md §4.2.1 and the file sector codec require.
func CTRTransform(key, iv, src []byte) ([]byte, error) {
	stream, err := NewCTRStream(key, iv)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, len(src))
	stream.XORKeyStream(dst, src)
	return dst, nil
}

// RandomBytes draws n cryptographically strong random bytes (spec.md §4.2.1
// step 1's "draw 64 random bytes as salt", and elsewhere for SymKey
// material).
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, errs.ErrInvalidKey.Wrap(err)
	}
	return b, nil
}

// Wipe overwrites b with zeroes in place. Used to scrub plaintext private
// keys and SymKeys per spec.md §7 ("all private material is zero-wiped").
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
