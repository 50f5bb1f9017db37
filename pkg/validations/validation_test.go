package validations

import (
	"Cardpack/internal/entity"
	"Cardpack/pkg/log"
	"context"
	"testing"

	"github.com/asaskevich/govalidator"
	"github.com/stretchr/testify/assert"
)

type rateInput struct {
	Rate string `valid:"required,probability~rate:Drop rate must be between 0 and 1"`
}

func TestCustomValidations(t *testing.T) {
	RegisterCustomValidations(context.Background(), log.Nop())

	_, err := govalidator.ValidateStruct(entity.Card{Name: "Pikachu", Rarity: entity.Rare, SetID: "s1"})
	assert.NoError(t, err)
	_, err = govalidator.ValidateStruct(entity.Card{Name: "Pikachu", Rarity: "MYTHIC", SetID: "s1"})
	assert.Error(t, err)

	_, err = govalidator.ValidateStruct(rateInput{Rate: "0.25"})
	assert.NoError(t, err)
	_, err = govalidator.ValidateStruct(rateInput{Rate: "1.5"})
	assert.Error(t, err)

	assert.True(t, govalidator.TagMap["nospace"]("abc"))
	assert.False(t, govalidator.TagMap["nospace"]("a b"))
}
