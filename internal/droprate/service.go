// Service layer of the internal package droprate.

package droprate

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/pkg/log"
	"context"
	"fmt"
)

// Service layer of internal package droprate which encapsulates the drop-rate configuration of Cardpack.
type Service interface {
	// ListDropRates returns a snapshot of the configured rates in ascending rarity order.
	ListDropRates(ctx context.Context) ([]entity.DropRate, error)
	// UpdateDropRate sets the rate of a known tier, rate must lie within [0, 1].
	UpdateDropRate(ctx context.Context, rarity entity.Rarity, rate float64) (entity.DropRate, error)
	// SeedDefaults writes entity.DefaultDropRates for tiers which have no rate yet.
	SeedDefaults(ctx context.Context) error
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	dropRateRepo Repository
	logger       log.Logger
}

func NewService(dropRateRepo Repository, logger log.Logger) Service {
	return service{dropRateRepo, logger}
}

func (s service) ListDropRates(ctx context.Context) ([]entity.DropRate, error) {
	stored, dberr := s.dropRateRepo.GetDropRates(ctx, s.logger)
	if dberr != nil {
		return nil, dberr
	}
	tiers := make([]entity.Rarity, 0, len(stored))
	for rarity := range stored {
		tiers = append(tiers, rarity)
	}
	// Map iteration is random, the selector needs a stable walk order
	entity.SortRarities(tiers)

	rates := make([]entity.DropRate, 0, len(tiers))
	for _, rarity := range tiers {
		rates = append(rates, entity.DropRate{Rarity: rarity, Rate: stored[rarity]})
	}
	return rates, nil
}

func (s service) UpdateDropRate(ctx context.Context, rarity entity.Rarity, rate float64) (entity.DropRate, error) {
	if !rarity.Known() {
		return entity.DropRate{}, errors.NotFound(fmt.Sprintf("Drop rate for rarity %s not found.", rarity))
	}
	if rate < 0 || rate > 1 {
		return entity.DropRate{}, errors.GenerateValidationErrorResponse([]error{errors.New("rate:Drop rate must be between 0 and 1.")})
	}
	updated := entity.DropRate{Rarity: rarity, Rate: rate}
	if dberr := s.dropRateRepo.SetDropRate(ctx, s.logger, updated); dberr != nil {
		return entity.DropRate{}, dberr
	}
	s.logger.WithCtx(ctx).Info().Msgf("Drop rate for %s set to %v", rarity, rate)
	return updated, nil
}

func (s service) SeedDefaults(ctx context.Context) error {
	for _, rate := range entity.DefaultDropRates {
		written, dberr := s.dropRateRepo.SetDropRateIfAbsent(ctx, s.logger, rate)
		if dberr != nil {
			return dberr
		}
		if written {
			s.logger.WithCtx(ctx).Info().Msgf("Seeded drop rate for %s: %v", rate.Rarity, rate.Rate)
		}
	}
	return nil
}
