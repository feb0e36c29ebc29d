// Package pii derives stable, non-reversible tokens for personal identifiers
// so logs and audit entries can correlate a tax ID without storing it.
package pii

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hasher computes keyed BLAKE2b-256 digests.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher keyed with key. BLAKE2b accepts keys up to 64
// bytes; longer keys are truncated.
func NewHasher(key string) *Hasher {
	k := []byte(key)
	if len(k) > blake2b.Size {
		k = k[:blake2b.Size]
	}
	return &Hasher{key: k}
}

// Hash returns the hex digest of value, or "" for empty input.
func (h *Hasher) Hash(value string) string {
	if value == "" {
		return ""
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// Only reachable with an oversized key, which NewHasher prevents.
		return ""
	}
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Short returns the first 12 hex characters of Hash, enough to correlate log lines.
func (h *Hasher) Short(value string) string {
	full := h.Hash(value)
	if len(full) > 12 {
		return full[:12]
	}
	return full
}
