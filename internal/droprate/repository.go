// Drop-rate repository encapsulates the data access logic (interactions with the DB) related to drop rates in Cardpack.

package droprate

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/pkg/db"
	"Cardpack/pkg/log"
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
)

var dropRatesDbKey string = "drop-rates"

type Repository interface {
	// GetDropRates returns the raw rarity -> rate hash.
	GetDropRates(ctx context.Context, logger log.Logger) (map[entity.Rarity]float64, error)
	// SetDropRate adds or overwrites the rate of one tier.
	SetDropRate(ctx context.Context, logger log.Logger, rate entity.DropRate) error
	// SetDropRateIfAbsent writes the rate only when the tier has none yet.
	SetDropRateIfAbsent(ctx context.Context, logger log.Logger, rate entity.DropRate) (bool, error)
}

// repository struct of drop-rate Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of drop-rate repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func (r repository) GetDropRates(ctx context.Context, logger log.Logger) (map[entity.Rarity]float64, error) {
	values, dberr := r.db.Client().HGetAll(ctx, dropRatesDbKey).Result()
	if dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in droprate.GetDropRates")
		return nil, errors.InternalServerError("")
	}
	rates := make(map[entity.Rarity]float64, len(values))
	for rarity, raw := range values {
		rate, prserr := strconv.ParseFloat(raw, 64)
		if prserr != nil {
			// A corrupted entry can't take part in sampling
			logger.WithCtx(ctx).Warn().Err(prserr).Msgf("Ignoring unparsable drop rate for %s", rarity)
			continue
		}
		rates[entity.Rarity(rarity)] = rate
	}
	return rates, nil
}

func (r repository) SetDropRate(ctx context.Context, logger log.Logger, rate entity.DropRate) error {
	dberr := r.db.Client().HSet(ctx, dropRatesDbKey, string(rate.Rarity), formatRate(rate.Rate)).Err()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HSet() in droprate.SetDropRate")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) SetDropRateIfAbsent(ctx context.Context, logger log.Logger, rate entity.DropRate) (bool, error) {
	written, dberr := r.db.Client().HSetNX(ctx, dropRatesDbKey, string(rate.Rarity), formatRate(rate.Rate)).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HSetNX() in droprate.SetDropRateIfAbsent")
		return false, errors.InternalServerError("")
	}
	return written, nil
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
