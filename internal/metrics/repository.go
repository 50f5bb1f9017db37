// Metrics repository encapsulates the data access logic (interactions with the DB) related to opening counters in Cardpack.

package metrics

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/pkg/db"
	"Cardpack/pkg/log"
	"context"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
)

var metricsDbKey string = "cardpack:metrics"

const (
	openingsTotalField  = "openings_total"
	openingsRarityField = "openings:"
)

type Repository interface {
	// Get Cardpack opening counters
	GetMetrics(ctx context.Context, logger log.Logger) (entity.Metrics, error)
	// Count one opening which produced a card of the given rarity
	IncrOpening(ctx context.Context, logger log.Logger, rarity entity.Rarity) error
}

// repository struct of metrics Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of metrics repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func (r repository) GetMetrics(ctx context.Context, logger log.Logger) (entity.Metrics, error) {
	metrics := entity.Metrics{OpeningsByRarity: map[entity.Rarity]int64{}}
	values, dberr := r.db.Client().HGetAll(ctx, metricsDbKey).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in metrics.GetMetrics")
		return entity.Metrics{}, errors.InternalServerError("")
	}
	for field, raw := range values {
		count, prserr := strconv.ParseInt(raw, 10, 64)
		if prserr != nil {
			logger.WithCtx(ctx).Warn().Err(prserr).Msgf("Ignoring unparsable metrics field %s", field)
			continue
		}
		if field == openingsTotalField {
			metrics.OpeningsTotal = count
		} else if rarity, ok := strings.CutPrefix(field, openingsRarityField); ok {
			metrics.OpeningsByRarity[entity.Rarity(rarity)] = count
		}
	}
	return metrics, nil
}

func (r repository) IncrOpening(ctx context.Context, logger log.Logger, rarity entity.Rarity) error {
	// Both counters move together or not at all
	_, dberr := r.db.Client().TxPipelined(ctx, func(client redis.Pipeliner) error {
		client.HIncrBy(ctx, metricsDbKey, openingsTotalField, 1)
		client.HIncrBy(ctx, metricsDbKey, openingsRarityField+string(rarity), 1)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured in IncrOpening transaction")
		return errors.InternalServerError("")
	}
	return nil
}
