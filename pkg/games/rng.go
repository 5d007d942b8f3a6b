package games

import (
	"math/rand"
	"time"
)

// NewRNG returns the entropy source handed to engines that shuffle or roll
// dice. A zero seed picks a wall-clock seed; tests inject fixed seeds for
// deterministic streams.
func NewRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
