// All global custom validations in Cardpack are defined here.
// These validations are allowed to be used anywhere in the application.

package validations

import (
	"Cardpack/internal/entity"
	"Cardpack/pkg/log"
	"context"
	"strconv"
	"sync"

	"github.com/asaskevich/govalidator"
)

var once sync.Once

// RegisterCustomValidations adds Cardpack's tags into govalidator, safe to call more than once.
func RegisterCustomValidations(ctx context.Context, logger log.Logger) {
	once.Do(func() {
		// This global validation doesn't allow whitespace in input.
		govalidator.TagMap["nospace"] = govalidator.Validator(func(str string) bool {
			return !govalidator.HasWhitespace(str)
		})
		// Rarity tiers must be one of the known tiers.
		govalidator.TagMap["rarity"] = govalidator.Validator(func(str string) bool {
			return entity.Rarity(str).Known()
		})
		// Drop rates are probabilities.
		govalidator.TagMap["probability"] = govalidator.Validator(func(str string) bool {
			rate, err := strconv.ParseFloat(str, 64)
			return err == nil && rate >= 0 && rate <= 1
		})
		logger.WithCtx(ctx).Info().Msg("Successfully registered custom validations.")
	})
}
