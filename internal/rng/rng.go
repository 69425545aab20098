// Package rng provides the deterministic, string-keyed random stream used
// wherever a daily set must be reproducible.
//
// The key is hashed with SHA-256; the first two big-endian 64-bit words of the
// digest seed a PCG-DXSM generator (math/rand/v2.PCG). Float64 uses the top
// 53 bits of each 64-bit output. The same key yields the same sequence on
// every platform.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
)

// Rng is a per-invocation generator. It is not safe for concurrent use.
type Rng struct {
	src *rand.PCG
}

// New derives a generator from key.
func New(key string) *Rng {
	sum := sha256.Sum256([]byte(key))
	hi := binary.BigEndian.Uint64(sum[0:8])
	lo := binary.BigEndian.Uint64(sum[8:16])
	return &Rng{src: rand.NewPCG(hi, lo)}
}

// ForMode keys a generator by date and mode so modes never share a stream.
func ForMode(date, modeID string) *Rng {
	return New(date + "-" + modeID)
}

// Uint64 returns the next raw 64-bit output.
func (r *Rng) Uint64() uint64 {
	return r.src.Uint64()
}

// Float64 returns a value in [0, 1).
func (r *Rng) Float64() float64 {
	return float64(r.src.Uint64()>>11) / (1 << 53)
}

// IntN returns a value in [0, n). It panics if n <= 0.
func (r *Rng) IntN(n int) int {
	if n <= 0 {
		panic("rng: IntN called with non-positive n")
	}
	v := int(r.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// Shuffle permutes n elements in place with Fisher-Yates.
func (r *Rng) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		swap(i, j)
	}
}

// DaySeed is the audit seed stored on a daily set: the absolute value of the
// first output of New(date) truncated to int32.
func DaySeed(date string) int64 {
	first := int32(uint32(New(date).Uint64() >> 32))
	seed := int64(first)
	if seed < 0 {
		seed = -seed
	}
	return seed
}
