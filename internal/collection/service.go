// Service layer of the internal package collection.

package collection

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/pkg/log"
	"context"
	"fmt"
)

// Service layer of internal package collection, the ledger of which viewer owns which card.
type Service interface {
	// AddCard adds quantity copies of a card to a viewer's collection.
	AddCard(ctx context.Context, viewerID, cardID string, quantity int64) error
	// CountDistinctCardsInSet returns how many different cards of a set the viewer owns.
	CountDistinctCardsInSet(ctx context.Context, viewerID, setID string) (int64, error)
	// CountDistinctCardsTotal returns how many different cards the viewer owns.
	CountDistinctCardsTotal(ctx context.Context, viewerID string) (int64, error)
	// ListCollection returns the viewer's collection.
	ListCollection(ctx context.Context, viewerID string) ([]entity.CollectionEntry, error)
}

// CardFinder is the slice of the catalog the ledger needs.
type CardFinder interface {
	FindCardByID(ctx context.Context, id string) (*entity.Card, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	collectionRepo Repository
	cards          CardFinder
	logger         log.Logger
}

func NewService(collectionRepo Repository, cards CardFinder, logger log.Logger) Service {
	return service{collectionRepo, cards, logger}
}

func (s service) AddCard(ctx context.Context, viewerID, cardID string, quantity int64) error {
	if quantity <= 0 {
		return errors.Validation("Quantity must be positive, got %d.", quantity)
	}
	card, dberr := s.cards.FindCardByID(ctx, cardID)
	if dberr != nil {
		return dberr
	} else if card == nil {
		return errors.Validation("Card with ID %s not found.", cardID)
	}
	total, dberr := s.collectionRepo.IncrCard(ctx, s.logger, viewerID, cardID, quantity)
	if dberr != nil {
		return dberr
	}
	s.logger.WithCtx(ctx).Debug().Msg(fmt.Sprintf("Viewer %s now owns %d of card %s", viewerID, total, cardID))
	return nil
}

func (s service) CountDistinctCardsInSet(ctx context.Context, viewerID, setID string) (int64, error) {
	return s.collectionRepo.CountCardsInSet(ctx, s.logger, viewerID, setID)
}

func (s service) CountDistinctCardsTotal(ctx context.Context, viewerID string) (int64, error) {
	return s.collectionRepo.CountCards(ctx, s.logger, viewerID)
}

func (s service) ListCollection(ctx context.Context, viewerID string) ([]entity.CollectionEntry, error) {
	return s.collectionRepo.GetCollection(ctx, s.logger, viewerID)
}
