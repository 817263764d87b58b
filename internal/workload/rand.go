package workload

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Rand is the random source behind randomized generator behaviour.
// Tests substitute a seeded or scripted implementation.
type Rand interface {
	// IntN returns a uniform value in [0, n).
	IntN(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand returns a goroutine-safe Rand. A zero seed is replaced by the current time.
func NewRand(seed uint64) Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedRand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *lockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}
