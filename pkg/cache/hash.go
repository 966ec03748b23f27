package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Use full SHA-256 hash (64 hex chars / 256 bits) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Signature derives a cheap identity for a file from its path, size, and
// modification time. Any rewrite of the file changes the signature, which
// is what lets catalog entries live in the cache without content hashing
// multi-gigabyte archives.
func Signature(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	raw := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	return Hash([]byte(raw)), nil
}
