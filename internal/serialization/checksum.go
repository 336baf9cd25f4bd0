package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// checksumKey is the metadata entry holding the data section checksum.
const checksumKey = "sha256"

// computeChecksum returns the hex SHA-256 of data.
func computeChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// validateChecksum compares the checksum of data against the stored one.
// Files without a stored checksum are accepted.
func validateChecksum(data []byte, stored string) error {
	if stored == "" {
		return nil
	}
	if computed := computeChecksum(data); computed != stored {
		return fmt.Errorf("%w: computed %s, stored %s", ErrChecksumMismatch, computed, stored)
	}
	return nil
}
