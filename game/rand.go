package game

import "golang.org/x/exp/rand"

// NewRand returns a source seeded for reproducible matches. The same seed
// always yields the same sequence.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(uint64(seed)))
}
