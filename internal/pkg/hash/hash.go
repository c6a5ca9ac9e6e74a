// Package hash derives content hashes and stable photo IDs.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// photoIDLen is the hex length of derived photo IDs.
const photoIDLen = 16

// SHA256 returns the hex-encoded SHA-256 digest of data.
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256String hashes s.
func SHA256String(s string) string {
	return SHA256([]byte(s))
}

// SHA256Short returns the first n hex characters of the digest, or the
// whole digest when n exceeds its length.
func SHA256Short(data []byte, n int) string {
	digest := SHA256(data)
	if n >= len(digest) {
		return digest
	}
	return digest[:n]
}

// PhotoID derives a stable photo ID from the original file name and the
// content hash. Re-ingesting the same file yields the same ID.
func PhotoID(name, contentHash string) string {
	return SHA256Short([]byte(name+":"+contentHash), photoIDLen)
}
