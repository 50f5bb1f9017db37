// Weighted random selection of a rarity tier from the configured drop rates.

package selection

import (
	"Cardpack/internal/entity"
	"math/rand"
	"sync"
	"time"
)

// Sample returns a uniform float in [0, 1).
type Sample func() float64

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Float64 is the default Sample, safe for concurrent use.
func Float64() float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Float64()
}

// SelectRarity picks a tier from rates using one draw of sample.
//
// Entries with a rate <= 0 are ignored and the rest are normalised by their sum, so a
// configuration which doesn't add up to 1 still yields a full distribution. Entries are walked in
// the order given. ok is false only when no entry has a positive rate.
func SelectRarity(rates []entity.DropRate, sample Sample) (tier entity.Rarity, ok bool) {
	total := 0.0
	positive := make([]entity.DropRate, 0, len(rates))
	for _, rate := range rates {
		if rate.Rate > 0 {
			positive = append(positive, rate)
			total += rate.Rate
		}
	}
	if len(positive) == 0 {
		return "", false
	}

	r := sample()
	cumulative := 0.0
	for _, rate := range positive {
		cumulative += rate.Rate / total
		if r < cumulative {
			return rate.Rarity, true
		}
	}
	// Float accumulation can leave a gap just below 1.
	return positive[len(positive)-1].Rarity, true
}
