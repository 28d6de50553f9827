package engine

import (
	"math/rand"
	"time"
)

// NewRand returns a seeded outcome source; seed 0 seeds from the clock.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
