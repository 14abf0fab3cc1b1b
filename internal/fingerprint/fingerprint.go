// Package fingerprint computes content digests used to decide whether a
// submitted photo actually changed. The digest is an equality oracle, never a
// security credential, so any collision-resistant hash would do; SHA-256 is
// already in the dependency tree via the standard library.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data. Identical byte
// sequences always produce identical digests, which is the only property the
// upsert pipeline relies on.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
