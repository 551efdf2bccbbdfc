package keyvault

import (
	"encoding/binary"

	"github.com/cloudvault/enginecore/errs"
)

// saltSize is the PBKDF2 salt length carried in a priv_blob (grounded on
// original_source/pcloudcrypto.c's priv_key_ver1 struct: type(4) +
// flags(4) + salt(64) + ciphertext(variable)).
const saltSize = 64

// MarshalPrivBlob serializes a privBlob to its wire form: type(4) +
// flags(4) + salt(64) + ciphertext(variable), per spec.md §4.2.1 step 3.
func MarshalPrivBlob(salt, ciphertext []byte) []byte {
	b := make([]byte, 8+saltSize+len(ciphertext))
	binary.BigEndian.PutUint32(b[0:4], privKeyTypeRSA4096Salt64It20000)
	binary.BigEndian.PutUint32(b[4:8], 0)
	copy(b[8:8+saltSize], salt)
	copy(b[8+saltSize:], ciphertext)
	return b
}

// UnmarshalPrivBlob parses the wire form produced by MarshalPrivBlob,
// returning the salt and the still-encrypted private key ciphertext.
func UnmarshalPrivBlob(b []byte) (salt, ciphertext []byte, err error) {
	if len(b) < 8+saltSize {
		return nil, nil, errs.ErrUnknownKeyFormat.WithDetail("priv_blob too short")
	}
	version := binary.BigEndian.Uint32(b[0:4])
	if version != privKeyTypeRSA4096Salt64It20000 {
		return nil, nil, errs.ErrUnknownKeyFormat.WithDetail("unrecognized priv_blob version")
	}
	salt = append([]byte(nil), b[8:8+saltSize]...)
	ciphertext = append([]byte(nil), b[8+saltSize:]...)
	return salt, ciphertext, nil
}

// MarshalPubBlob serializes an RSA public key's PKIX bytes into the
// type(4)+flags(4)+pubkey(variable) wire form (spec.md §4.2.1 step 5),
// grounded on the same priv_blob-style header for consistency.
func MarshalPubBlob(pubBytes []byte) []byte {
	b := make([]byte, 8+len(pubBytes))
	binary.BigEndian.PutUint32(b[0:4], pubKeyTypeRSA4096)
	binary.BigEndian.PutUint32(b[4:8], 0)
	copy(b[8:], pubBytes)
	return b
}

// UnmarshalPubBlob parses the wire form produced by MarshalPubBlob,
// returning the raw PKIX-encoded public key bytes.
func UnmarshalPubBlob(b []byte) ([]byte, error) {
	if len(b) < 8 {
		return nil, errs.ErrUnknownKeyFormat.WithDetail("pub_blob too short")
	}
	version := binary.BigEndian.Uint32(b[0:4])
	if version != pubKeyTypeRSA4096 {
		return nil, errs.ErrUnknownKeyFormat.WithDetail("unrecognized pub_blob version")
	}
	return append([]byte(nil), b[8:]...), nil
}
