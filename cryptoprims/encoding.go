package cryptoprims

import (
	"encoding/base32"
	"encoding/base64"
)

// ToBase64 / FromBase64 wrap the at-rest/wire encoding spec.md §3 and §6
// require for key blobs ("uploaded base64-encoded").
func ToBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func FromBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// base32Encoding is unpadded, matching the filesystem-safe, case-insensitive
// alphabet spec.md §4.2.4 calls for when turning encrypted filename
// ciphertext into a directory-entry-safe string.
var base32Encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ToBase32 / FromBase32 wrap the filename-safe encoding used for encrypted
// directory entry names (spec.md §4.2.4).
func ToBase32(b []byte) string {
	return base32Encoding.EncodeToString(b)
}

func FromBase32(s string) ([]byte, error) {
	return base32Encoding.DecodeString(s)
}
