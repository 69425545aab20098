package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfIsStable(t *testing.T) {
	t.Parallel()

	a := Of("Man Bites Dog", "https://example.org/a")
	b := Of("Man Bites Dog", "https://example.org/a")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestOfMatchesJoinedDigest(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("Okapi-Real-animal-fictional"))
	assert.Equal(t, hex.EncodeToString(sum[:]), Of("Okapi", "Real", "animal-fictional"))
}

func TestOfDistinguishesContent(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, Of("a", "b"), Of("a", "c"))
	assert.NotEqual(t, Of("https://img/1", "Real"), Of("https://img/1", "AI"))
}
