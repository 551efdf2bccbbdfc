package keyvault

import (
	"encoding/binary"

	"github.com/cloudvault/enginecore/cryptoprims"
	"github.com/cloudvault/enginecore/errs"
)

// Wire type/flag codes for the blobs and keys this package marshals,
// grounded on original_source/pcloudcrypto.c's priv_key_ver1/pub_key_ver1/
// sym_key_ver1 layouts (the only versions the original recognizes).
const (
	privKeyTypeRSA4096Salt64It20000 uint32 = 1
	pubKeyTypeRSA4096               uint32 = 1

	symFlagIsDir uint32 = 1
)

// symKeySize is the marshaled size of a SymKey: type(4) + flags(4) +
// aeskey(32) + hmackey(64) = 104 bytes (spec.md §4.2.3 step 3).
const symKeySize = 4 + 4 + cryptoprims.AESKeySize + 64

// SymKey is the per-folder/per-file symmetric key spec.md §3/§4.2 wraps
// under the user's RSA public key. AESKey encodes/decodes content or
// filenames; HMACKey authenticates it (spec.md does not exercise HMAC
// verification directly, but the field is carried so the wire format
// round-trips byte for byte with what the API stores).
type SymKey struct {
	IsDir   bool
	AESKey  [cryptoprims.AESKeySize]byte
	HMACKey [64]byte
}

// NewSymKey draws fresh random key material for a newly created encrypted
// folder or file (spec.md §4.2.4 step 1).
func NewSymKey(isDir bool) (*SymKey, error) {
	aesKey, err := cryptoprims.RandomBytes(cryptoprims.AESKeySize)
	if err != nil {
		return nil, err
	}
	hmacKey, err := cryptoprims.RandomBytes(64)
	if err != nil {
		return nil, err
	}
	k := &SymKey{IsDir: isDir}
	copy(k.AESKey[:], aesKey)
	copy(k.HMACKey[:], hmacKey)
	return k, nil
}

// Marshal serializes a SymKey to its 104-byte wire form.
func (k *SymKey) Marshal() []byte {
	b := make([]byte, symKeySize)
	binary.BigEndian.PutUint32(b[0:4], symKeyVersion)
	flags := uint32(0)
	if k.IsDir {
		flags |= symFlagIsDir
	}
	binary.BigEndian.PutUint32(b[4:8], flags)
	copy(b[8:8+cryptoprims.AESKeySize], k.AESKey[:])
	copy(b[8+cryptoprims.AESKeySize:], k.HMACKey[:])
	return b
}

// symKeyVersion is the only SymKey wire version this engine recognizes;
// a mismatch on unmarshal is reported as ErrUnknownKeyFormat rather than
// silently reinterpreted.
const symKeyVersion uint32 = 1

// UnmarshalSymKey parses the 104-byte wire form produced by Marshal,
// validating wantDir against the decoded IS_DIR flag per spec.md §4.2.3
// step 4. Both the folder and the file resolution paths reject on a
// mismatch — the original source's behavior was inconsistent between the
// two paths; this engine mandates rejecting in both, per DESIGN.md.
func UnmarshalSymKey(b []byte, wantDir bool) (*SymKey, error) {
	if len(b) != symKeySize {
		return nil, errs.ErrUnknownKeyFormat.WithDetail("wrong SymKey length")
	}
	version := binary.BigEndian.Uint32(b[0:4])
	if version != symKeyVersion {
		return nil, errs.ErrUnknownKeyFormat.WithDetail("unrecognized SymKey version")
	}
	flags := binary.BigEndian.Uint32(b[4:8])
	isDir := flags&symFlagIsDir != 0
	k := &SymKey{IsDir: isDir}
	copy(k.AESKey[:], b[8:8+cryptoprims.AESKeySize])
	copy(k.HMACKey[:], b[8+cryptoprims.AESKeySize:])
	if isDir != wantDir {
		return nil, errs.ErrInvalidKey.WithDetail("IS_DIR flag does not match requested key kind")
	}
	return k, nil
}

// Wipe zeroes the key material in place (spec.md §7: private material is
// zero-wiped on release).
func (k *SymKey) Wipe() {
	cryptoprims.Wipe(k.AESKey[:])
	cryptoprims.Wipe(k.HMACKey[:])
}
