package advisory

import (
	"math/rand"
	"time"
)

// Deriver computes view models from a composite record. Several derivations
// are intentionally non-deterministic (seasonal jitter, yield-index spread,
// insight selection); the randomness source is injectable so tests can pin
// outputs with a fixed seed.
type Deriver struct {
	rng *rand.Rand
}

// NewDeriver returns a Deriver seeded from the clock.
func NewDeriver() *Deriver {
	return NewDeriverWithSource(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewDeriverWithSource returns a Deriver using the given randomness source.
func NewDeriverWithSource(rng *rand.Rand) *Deriver {
	return &Deriver{rng: rng}
}

// intn mirrors rand.Intn but tolerates a zero bound.
func (d *Deriver) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return d.rng.Intn(n)
}
