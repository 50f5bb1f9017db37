package selection

import (
	"Cardpack/internal/entity"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixed(r float64) Sample {
	return func() float64 { return r }
}

var threeTiers = []entity.DropRate{
	{Rarity: entity.Common, Rate: 0.7},
	{Rarity: entity.Uncommon, Rate: 0.2},
	{Rarity: entity.Rare, Rate: 0.1},
}

func TestSelectRarityBoundaries(t *testing.T) {
	cases := []struct {
		sample float64
		want   entity.Rarity
	}{
		{0, entity.Common},
		{0.69, entity.Common},
		{0.71, entity.Uncommon},
		{0.89, entity.Uncommon},
		{0.91, entity.Rare},
		{0.95, entity.Rare},
	}
	for _, tc := range cases {
		tier, ok := SelectRarity(threeTiers, fixed(tc.sample))
		assert.True(t, ok)
		assert.Equal(t, tc.want, tier, "sample %v", tc.sample)
	}
}

func TestSelectRarityNoPositiveRates(t *testing.T) {
	_, ok := SelectRarity(nil, fixed(0.5))
	assert.False(t, ok)

	_, ok = SelectRarity([]entity.DropRate{
		{Rarity: entity.Common, Rate: 0},
		{Rarity: entity.Rare, Rate: -0.3},
	}, fixed(0.5))
	assert.False(t, ok)
}

func TestSelectRaritySkipsNonPositiveEntries(t *testing.T) {
	rates := []entity.DropRate{
		{Rarity: entity.Common, Rate: 0},
		{Rarity: entity.Uncommon, Rate: 0.5},
		{Rarity: entity.Rare, Rate: -1},
		{Rarity: entity.Epic, Rate: 0.5},
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		tier, ok := SelectRarity(rates, rng.Float64)
		assert.True(t, ok)
		assert.Contains(t, []entity.Rarity{entity.Uncommon, entity.Epic}, tier)
	}
}

func TestSelectRarityNormalizes(t *testing.T) {
	scaled := make([]entity.DropRate, len(threeTiers))
	for i, rate := range threeTiers {
		scaled[i] = entity.DropRate{Rarity: rate.Rarity, Rate: rate.Rate * 37}
	}
	for _, r := range []float64{0, 0.3, 0.69, 0.71, 0.85, 0.91, 0.99} {
		want, _ := SelectRarity(threeTiers, fixed(r))
		got, ok := SelectRarity(scaled, fixed(r))
		assert.True(t, ok)
		assert.Equal(t, want, got, "sample %v", r)
	}

	// A configuration which sums to 0.5 still covers the whole sample range.
	half := []entity.DropRate{{Rarity: entity.Common, Rate: 0.25}, {Rarity: entity.Rare, Rate: 0.25}}
	tier, ok := SelectRarity(half, fixed(0.75))
	assert.True(t, ok)
	assert.Equal(t, entity.Rare, tier)
}

func TestSelectRarityFallsBackToLastTier(t *testing.T) {
	// A draw beyond the accumulated total lands on the last positive tier.
	rates := []entity.DropRate{
		{Rarity: entity.Common, Rate: 0.1},
		{Rarity: entity.Uncommon, Rate: 0.2},
		{Rarity: entity.Legendary, Rate: 0.3},
		{Rarity: entity.LegendaryAlt, Rate: 0},
	}
	tier, ok := SelectRarity(rates, fixed(1))
	assert.True(t, ok)
	assert.Equal(t, entity.Legendary, tier)
}

func TestSelectRarityDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	counts := map[entity.Rarity]int{}
	const draws = 20000
	for i := 0; i < draws; i++ {
		tier, _ := SelectRarity(threeTiers, rng.Float64)
		counts[tier]++
	}
	assert.InDelta(t, 0.7, float64(counts[entity.Common])/draws, 0.02)
	assert.InDelta(t, 0.2, float64(counts[entity.Uncommon])/draws, 0.02)
	assert.InDelta(t, 0.1, float64(counts[entity.Rare])/draws, 0.02)
}
