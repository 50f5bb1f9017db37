// Service layer of the internal package metrics.

package metrics

import (
	"Cardpack/internal/entity"
	"Cardpack/pkg/log"
	"context"
)

// Service layer of internal package metrics which counts pack openings in Cardpack.
type Service interface {
	// get Cardpack opening counters
	GetMetrics(ctx context.Context) (entity.Metrics, error)
	// record a successful opening
	RecordOpening(ctx context.Context, rarity entity.Rarity) error
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	metricsRepo Repository
	logger      log.Logger
}

func NewService(metricsRepo Repository, logger log.Logger) Service {
	return service{metricsRepo: metricsRepo, logger: logger}
}

func (s service) GetMetrics(ctx context.Context) (entity.Metrics, error) {
	return s.metricsRepo.GetMetrics(ctx, s.logger)
}

func (s service) RecordOpening(ctx context.Context, rarity entity.Rarity) error {
	return s.metricsRepo.IncrOpening(ctx, s.logger, rarity)
}
