package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// HashFile reads the whole file into memory and returns its SHA-256 as
// lowercase hex.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return HashBytes(data), nil
}

// HashBytes returns the SHA-256 of data as lowercase hex.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
