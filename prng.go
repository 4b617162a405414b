package channel

import (
	mrand "github.com/ericlagergren/saferand"
)

// DeterministicPRNG wraps a seeded math/rand-compatible source as an
// io.Reader, so identity generation, keyload session keys/nonces, and
// unsubscribe keys can all be reproduced byte-for-byte from the same seed:
// two users started from equal seeds produce byte-identical binary
// messages. Production callers should prefer crypto/rand; this exists for
// test vectors.
//
// Modeled on dr_test.go's use of github.com/ericlagergren/saferand for a
// reproducible rand.Source.
type DeterministicPRNG struct {
	r *mrand.Rand
}

// NewDeterministicPRNG seeds a PRNG from a single int64, suitable for fixed,
// reproducible test vectors.
func NewDeterministicPRNG(seed int64) *DeterministicPRNG {
	return &DeterministicPRNG{r: mrand.New(mrand.NewSource(seed))}
}

// Read implements io.Reader by drawing len(p) pseudo-random bytes.
func (d *DeterministicPRNG) Read(p []byte) (int, error) {
	return d.r.Read(p)
}
