// Package fingerprint derives the content hash used as the dedup key of items.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Separator joins identifying fields before hashing.
const Separator = "-"

// Of returns the hex SHA-256 of the parts joined by Separator.
func Of(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, Separator)))
	return hex.EncodeToString(sum[:])
}
