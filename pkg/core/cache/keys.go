package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key generates a compact cache key from its parts, e.g. mode, rule and
// expression text
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return namespace + ":" + hex.EncodeToString(hash[:16]) // Use first 16 bytes
}
