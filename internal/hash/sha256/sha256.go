// Package sha256 derives stable keys from scrape parameters.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements jobs.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of data.
func (Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key hashes the joined parts, truncated to n hex characters when n > 0.
func (h Hasher) Key(n int, parts ...string) string {
	var buf []byte
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, p...)
	}
	digest := h.Hash(buf)
	if n > 0 && n < len(digest) {
		return digest[:n]
	}
	return digest
}
