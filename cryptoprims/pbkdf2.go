package cryptoprims

import (
	"crypto/sha512"

	"golang.org/x/crypto/pbkdf2"
)

// DefaultIterations is the only recognized iteration count for the
// RSA4096_64BYTESALT_20000IT key version (spec.md §3).
const DefaultIterations = 20000

// WrapperKeySize is AESKeySize (32) + AESIVSize (16) bytes, split into the
// AES key and CTR nonce used to protect the private key at rest (spec.md
// §4.2.1 step 2).
const WrapperKeySize = AESKeySize + AESIVSize

// DeriveWrapper computes the PBKDF2-HMAC-SHA512 wrapper key material used to
// encrypt the private key blob, per spec.md §4.2.1 step 2.
func DeriveWrapper(password string, salt []byte, iterations int) (aesKey, iv []byte) {
	wrapper := pbkdf2.Key([]byte(password), salt, iterations, WrapperKeySize, sha512.New)
	return wrapper[:AESKeySize], wrapper[AESKeySize:]
}
