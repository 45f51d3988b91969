// Package checksum versions note content for optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats a checksum as a strong HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Matches reports whether data hashes to tag. tag may be a bare checksum or
// a quoted ETag; a weak "W/" prefix is accepted.
func Matches(data []byte, tag string) bool {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
	return Sum(data) == strings.Trim(tag, `"`)
}
