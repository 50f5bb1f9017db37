// Uniform selection of a card within a set and rarity tier.

package selection

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"fmt"
)

// NoEligibleCardError means a tier was drawn for which the set holds no card.
// It is a configuration problem and unwraps to *errors.ConfigurationError.
type NoEligibleCardError struct {
	SetID  string
	Rarity entity.Rarity
}

func (e *NoEligibleCardError) Error() string {
	return fmt.Sprintf("No cards found for rarity %s in Set ID %s.", e.Rarity, e.SetID)
}

func (e *NoEligibleCardError) Unwrap() error {
	return &errors.ConfigurationError{Message: e.Error()}
}

// PickCard returns one card of the given set and rarity, chosen uniformly with sample.
func PickCard(cards []entity.Card, setID string, rarity entity.Rarity, sample Sample) (entity.Card, error) {
	eligible := make([]entity.Card, 0)
	for _, card := range cards {
		if card.SetID == setID && card.Rarity == rarity {
			eligible = append(eligible, card)
		}
	}
	if len(eligible) == 0 {
		return entity.Card{}, &NoEligibleCardError{SetID: setID, Rarity: rarity}
	}

	index := int(sample() * float64(len(eligible)))
	if index >= len(eligible) {
		index = len(eligible) - 1
	}
	return eligible[index], nil
}
