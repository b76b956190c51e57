package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns a stable hex digest of a payload, used in logs to
// correlate deliveries of the same bytes without printing them.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
