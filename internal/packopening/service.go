// Service layer of the internal package packopening.

package packopening

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/internal/selection"
	"Cardpack/pkg/log"
	"context"
)

// Service turns "viewer X opens a pack of set Y" into a card added to the viewer's collection.
type Service interface {
	OpenPack(ctx context.Context, viewerID, setID string) (entity.OpeningResult, error)
}

type ViewerFinder interface {
	FindByID(ctx context.Context, id string) (*entity.Viewer, error)
}

type SetFinder interface {
	FindSetByID(ctx context.Context, id string) (*entity.Set, error)
}

type CardLister interface {
	ListCards(ctx context.Context) ([]entity.Card, error)
}

type DropRateLister interface {
	ListDropRates(ctx context.Context) ([]entity.DropRate, error)
}

// Ledger records card ownership.
type Ledger interface {
	AddCard(ctx context.Context, viewerID, cardID string, quantity int64) error
	CountDistinctCardsInSet(ctx context.Context, viewerID, setID string) (int64, error)
	CountDistinctCardsTotal(ctx context.Context, viewerID string) (int64, error)
}

// MetricsRecorder is optional, a nil recorder skips metrics.
type MetricsRecorder interface {
	RecordOpening(ctx context.Context, rarity entity.Rarity) error
}

// Dependencies groups the collaborators of the pack opening service.
type Dependencies struct {
	Viewers   ViewerFinder
	Sets      SetFinder
	Cards     CardLister
	DropRates DropRateLister
	Ledger    Ledger
	Metrics   MetricsRecorder
	// Sample defaults to selection.Float64.
	Sample selection.Sample
}

type service struct {
	deps   Dependencies
	logger log.Logger
}

func NewService(deps Dependencies, logger log.Logger) Service {
	if deps.Sample == nil {
		deps.Sample = selection.Float64
	}
	return service{deps: deps, logger: logger}
}

func (s service) OpenPack(ctx context.Context, viewerID, setID string) (entity.OpeningResult, error) {
	viewer, dberr := s.deps.Viewers.FindByID(ctx, viewerID)
	if dberr != nil {
		return entity.OpeningResult{}, dberr
	} else if viewer == nil {
		return entity.OpeningResult{}, errors.Validation("Viewer with ID %s not found.", viewerID)
	}

	set, dberr := s.deps.Sets.FindSetByID(ctx, setID)
	if dberr != nil {
		return entity.OpeningResult{}, dberr
	} else if set == nil {
		return entity.OpeningResult{}, errors.Validation("Set with ID %s not found.", setID)
	}

	rates, dberr := s.deps.DropRates.ListDropRates(ctx)
	if dberr != nil {
		return entity.OpeningResult{}, dberr
	}
	rarity, ok := selection.SelectRarity(rates, s.deps.Sample)
	if !ok {
		return entity.OpeningResult{}, errors.Configuration("Could not determine a drop rarity. Check drop rate configuration.")
	}

	cards, dberr := s.deps.Cards.ListCards(ctx)
	if dberr != nil {
		return entity.OpeningResult{}, dberr
	}
	card, pickerr := selection.PickCard(cards, set.ID, rarity, s.deps.Sample)
	if pickerr != nil {
		s.logger.WithCtx(ctx).Warn().Err(pickerr).Msg("Drawn rarity has no card in set")
		return entity.OpeningResult{}, pickerr
	}

	if dberr = s.deps.Ledger.AddCard(ctx, viewer.ID, card.ID, 1); dberr != nil {
		return entity.OpeningResult{}, dberr
	}
	inSet, dberr := s.deps.Ledger.CountDistinctCardsInSet(ctx, viewer.ID, set.ID)
	if dberr != nil {
		return entity.OpeningResult{}, dberr
	}
	total, dberr := s.deps.Ledger.CountDistinctCardsTotal(ctx, viewer.ID)
	if dberr != nil {
		return entity.OpeningResult{}, dberr
	}

	if s.deps.Metrics != nil {
		if merr := s.deps.Metrics.RecordOpening(ctx, rarity); merr != nil {
			s.logger.WithCtx(ctx).Warn().Err(merr).Msg("Could not record opening metrics")
		}
	}

	s.logger.WithCtx(ctx).Info().
		Str("viewer", viewer.ID).
		Str("set", set.ID).
		Str("rarity", string(rarity)).
		Str("card", card.ID).
		Msg("Pack opened")
	return entity.OpeningResult{
		Card:               card,
		DistinctCardsInSet: inSet,
		TotalDistinctCards: total,
	}, nil
}
