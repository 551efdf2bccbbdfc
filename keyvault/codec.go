package keyvault

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"github.com/cloudvault/enginecore/cryptoprims"
)

// FolderCodec translates UTF-8 directory entry names to and from their
// encrypted, filesystem-safe base32 form (spec.md §4.2.4). The same
// SymKey backs both directions; this engine caches an encoder and a
// decoder handle under separate CACHE_MANAGER prefixes (FLDE/FLDD) since
// that is the resolution protocol the spec names, even though both wrap
// the same struct.
type FolderCodec struct {
	aesKey  [cryptoprims.AESKeySize]byte
	hmacKey [64]byte
}

func newFolderCodec(k *SymKey) *FolderCodec {
	return &FolderCodec{aesKey: k.AESKey, hmacKey: k.HMACKey}
}

// nameIV derives a deterministic per-name CTR nonce from the folder's
// HMAC key so Encode/Decode agree without persisting a separate nonce
// alongside each directory entry.
func nameIV(hmacKey []byte, name string) []byte {
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write([]byte(name))
	sum := mac.Sum(nil)
	return sum[:cryptoprims.AESIVSize]
}

// EncodeName encrypts name and returns its base32, filesystem-safe form.
func (f *FolderCodec) EncodeName(name string) (string, error) {
	iv := nameIV(f.hmacKey[:], name)
	ct, err := cryptoprims.CTRTransform(f.aesKey[:], iv, []byte(name))
	if err != nil {
		return "", err
	}
	return cryptoprims.ToBase32(append(iv, ct...)), nil
}

// DecodeName reverses EncodeName: base32-decode, split the leading IV
// from the ciphertext, and AES-CTR decrypt.
func (f *FolderCodec) DecodeName(encoded string) (string, error) {
	raw, err := cryptoprims.FromBase32(encoded)
	if err != nil {
		return "", err
	}
	if len(raw) < cryptoprims.AESIVSize {
		return "", nil
	}
	iv, ct := raw[:cryptoprims.AESIVSize], raw[cryptoprims.AESIVSize:]
	pt, err := cryptoprims.CTRTransform(f.aesKey[:], iv, ct)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// FileSectorCodec encodes/decodes fixed-size file data sectors under a
// file's SymKey (spec.md §4.2.3's get_file_sector_codec). Each sector's
// CTR counter is seeded from its index so sectors can be encoded and
// decoded independently and out of order.
type FileSectorCodec struct {
	aesKey  [cryptoprims.AESKeySize]byte
	hmacKey [64]byte
}

func newFileSectorCodec(k *SymKey) *FileSectorCodec {
	return &FileSectorCodec{aesKey: k.AESKey, hmacKey: k.HMACKey}
}

// sectorIV builds a 16-byte CTR counter from the sector index so that
// sector N's keystream never overlaps sector M's for N != M.
func sectorIV(sectorIndex int64) []byte {
	iv := make([]byte, cryptoprims.AESIVSize)
	binary.BigEndian.PutUint64(iv[0:8], uint64(sectorIndex))
	return iv
}

// EncodeSector encrypts plaintext sector data in place (logically) and
// returns the ciphertext.
func (f *FileSectorCodec) EncodeSector(sectorIndex int64, plaintext []byte) ([]byte, error) {
	return cryptoprims.CTRTransform(f.aesKey[:], sectorIV(sectorIndex), plaintext)
}

// DecodeSector reverses EncodeSector.
func (f *FileSectorCodec) DecodeSector(sectorIndex int64, ciphertext []byte) ([]byte, error) {
	return cryptoprims.CTRTransform(f.aesKey[:], sectorIV(sectorIndex), ciphertext)
}
