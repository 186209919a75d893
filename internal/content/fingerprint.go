package content

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the sha256 hex digest of raw document bytes.
//
// The digest is content-based and stable across platforms, so an unchanged
// source file always fingerprints identically between builds.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:])
}
