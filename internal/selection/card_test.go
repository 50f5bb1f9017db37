package selection

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalog = []entity.Card{
	{ID: "c1", SetID: "s1", Rarity: entity.Common},
	{ID: "c2", SetID: "s1", Rarity: entity.Common},
	{ID: "c3", SetID: "s1", Rarity: entity.Rare},
	{ID: "c4", SetID: "s2", Rarity: entity.Rare},
	{ID: "c5", SetID: "s2", Rarity: entity.Common},
}

func TestPickCardSingleCandidate(t *testing.T) {
	for _, r := range []float64{0, 0.5, 0.999999} {
		card, err := PickCard(catalog, "s1", entity.Rare, fixed(r))
		require.NoError(t, err)
		assert.Equal(t, "c3", card.ID)
	}
}

func TestPickCardOnlyFromSetAndRarity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	seen := map[string]int{}
	for i := 0; i < 2000; i++ {
		card, err := PickCard(catalog, "s1", entity.Common, rng.Float64)
		require.NoError(t, err)
		seen[card.ID]++
	}
	assert.Len(t, seen, 2)
	assert.InDelta(t, 1000, seen["c1"], 120)
	assert.InDelta(t, 1000, seen["c2"], 120)
}

func TestPickCardIndexFromSample(t *testing.T) {
	card, err := PickCard(catalog, "s1", entity.Common, fixed(0.49))
	require.NoError(t, err)
	assert.Equal(t, "c1", card.ID)

	card, err = PickCard(catalog, "s1", entity.Common, fixed(0.5))
	require.NoError(t, err)
	assert.Equal(t, "c2", card.ID)
}

func TestPickCardNoEligibleCard(t *testing.T) {
	_, err := PickCard(catalog, "s2", entity.Epic, fixed(0.1))
	require.Error(t, err)

	var noCard *NoEligibleCardError
	require.ErrorAs(t, err, &noCard)
	assert.Equal(t, "s2", noCard.SetID)
	assert.Equal(t, entity.Epic, noCard.Rarity)

	var cfgErr *errors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = PickCard(nil, "s1", entity.Common, fixed(0.1))
	assert.ErrorAs(t, err, &noCard)
}
