// Package cryptoprims implements the CRYPTO_PRIMS collaborator: byte-level
// RSA, AES-CTR, PBKDF2, random, and encoding primitives. It has no notion of
// folders, files, or wire formats — those live in keyvault, which composes
// these primitives the way spec.md §4.2 describes.
package cryptoprims

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/cloudvault/enginecore/errs"
)

// RSAKeySize is the only recognized key size (spec.md §3: "RSA-4096").
const RSAKeySize = 4096

// GenerateRSAKeyPair creates a fresh RSA-4096 keypair, grounded on
// go-fed/apcore/keys.go's createRSAPrivateKey.
func GenerateRSAKeyPair() (*rsa.PrivateKey, error) {
	k, err := rsa.GenerateKey(rand.Reader, RSAKeySize)
	if err != nil {
		return nil, errs.ErrRSA.Wrap(err)
	}
	return k, nil
}

// SerializeRSAPrivateKey encodes a private key into PKCS8 form.
func SerializeRSAPrivateKey(k *rsa.PrivateKey) ([]byte, error) {
	b, err := x509.MarshalPKCS8PrivateKey(k)
	if err != nil {
		return nil, errs.ErrRSA.Wrap(err)
	}
	return b, nil
}

// ParseRSAPrivateKey decodes a PKCS8-encoded private key. A malformed or
// wrong-password-decrypted blob surfaces as ErrBadPassword per spec.md
// §4.2.2 step 4 rather than the raw parse error, since from the caller's
// perspective both failure modes look identical: garbage bytes in.
func ParseRSAPrivateKey(b []byte) (*rsa.PrivateKey, error) {
	k, err := x509.ParsePKCS8PrivateKey(b)
	if err != nil {
		return nil, errs.ErrBadPassword.Wrap(err)
	}
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, errs.ErrBadPassword.WithDetail("decoded key is not RSA")
	}
	return rk, nil
}

// SerializeRSAPublicKey encodes a public key into PKIX form.
func SerializeRSAPublicKey(p *rsa.PublicKey) ([]byte, error) {
	b, err := x509.MarshalPKIXPublicKey(p)
	if err != nil {
		return nil, errs.ErrRSA.Wrap(err)
	}
	return b, nil
}

// ParseRSAPublicKey decodes a PKIX-encoded public key. Returns
// ErrUnknownKeyFormat for anything that does not parse as an RSA public
// key, matching spec.md §4.2.2 step 2.
func ParseRSAPublicKey(b []byte) (*rsa.PublicKey, error) {
	k, err := x509.ParsePKIXPublicKey(b)
	if err != nil {
		return nil, errs.ErrUnknownKeyFormat.Wrap(err)
	}
	pk, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, errs.ErrUnknownKeyFormat.WithDetail("decoded key is not RSA")
	}
	return pk, nil
}

// EncryptOAEP encrypts plaintext under an RSA public key using OAEP/SHA-256,
// the modern equivalent of the "RSA-encrypt under the public key" operation
// spec.md §3/§4.2.4 describes for wrapping a SymKey.
func EncryptOAEP(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return nil, errs.ErrRSA.Wrap(err)
	}
	return ct, nil
}

// DecryptOAEP decrypts a ciphertext produced by EncryptOAEP.
func DecryptOAEP(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		return nil, errs.ErrInvalidKey.Wrap(err)
	}
	return pt, nil
}

// VerifyKeyPair performs the round-trip check of spec.md §4.2.2 step 5:
// encrypt a random value with the public key, decrypt with the private
// key, and compare. A mismatch surfaces as ErrKeysDontMatch.
func VerifyKeyPair(pub *rsa.PublicKey, priv *rsa.PrivateKey) error {
	probe := make([]byte, 64)
	if _, err := rand.Read(probe); err != nil {
		return errs.ErrRSA.Wrap(err)
	}
	ct, err := EncryptOAEP(pub, probe)
	if err != nil {
		return err
	}
	pt, err := DecryptOAEP(priv, ct)
	if err != nil {
		return errs.ErrKeysDontMatch.Wrap(err)
	}
	if len(pt) != len(probe) {
		return errs.ErrKeysDontMatch.WithDetail(fmt.Sprintf("length mismatch: %d vs %d", len(pt), len(probe)))
	}
	for i := range pt {
		if pt[i] != probe[i] {
			return errs.ErrKeysDontMatch
		}
	}
	return nil
}
