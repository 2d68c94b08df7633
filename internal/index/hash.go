package index

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// HashBytes returns the content hash for b in "sha256:<hex>" form.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// HashString hashes the UTF-8 bytes of s.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashFile hashes a file's content, returning "" when the file does
// not exist.
func HashFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return HashBytes(b), nil
}
