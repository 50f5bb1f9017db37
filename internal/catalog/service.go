// Service layer of the internal package catalog.

package catalog

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/pkg/log"
	"context"
	"fmt"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
)

// Service layer of internal package catalog which encapsulates card and set reference data of Cardpack.
type Service interface {
	// ListCards returns the full card catalog.
	ListCards(ctx context.Context) ([]entity.Card, error)
	// FindCardByID returns nil when no card has the given id.
	FindCardByID(ctx context.Context, id string) (*entity.Card, error)
	// CreateCard validates and stores a new card in an existing set.
	// A client chosen id that is already taken is refused with a conflict.
	CreateCard(ctx context.Context, card entity.Card) (entity.Card, error)
	// UpdateCard replaces the details of a card, its image is kept.
	UpdateCard(ctx context.Context, id string, card entity.Card) (entity.Card, error)
	// DeleteCard removes a card from the catalog.
	DeleteCard(ctx context.Context, id string) error
	// SetCardImage points a card at a new image.
	SetCardImage(ctx context.Context, id, image string) (entity.Card, error)
	// ListSets returns every set.
	ListSets(ctx context.Context) ([]entity.Set, error)
	// FindSetByID returns nil when no set has the given id.
	FindSetByID(ctx context.Context, id string) (*entity.Set, error)
	// CreateSet validates and stores a new set.
	// A client chosen id that is already taken is refused with a conflict.
	CreateSet(ctx context.Context, set entity.Set) (entity.Set, error)
	// UpdateSet renames a set, and replaces its image when one is given.
	UpdateSet(ctx context.Context, id string, set entity.Set) (entity.Set, error)
	// DeleteSet removes a set which no longer holds any card.
	DeleteSet(ctx context.Context, id string) error
	// SetCardIDs returns the ids of every card in a set.
	SetCardIDs(ctx context.Context, setID string) ([]string, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	catalogRepo Repository
	logger      log.Logger
}

func NewService(catalogRepo Repository, logger log.Logger) Service {
	return service{catalogRepo, logger}
}

func (s service) ListCards(ctx context.Context) ([]entity.Card, error) {
	return s.catalogRepo.GetCards(ctx, s.logger)
}

func (s service) FindCardByID(ctx context.Context, id string) (*entity.Card, error) {
	return s.catalogRepo.GetCard(ctx, s.logger, id)
}

func (s service) CreateCard(ctx context.Context, card entity.Card) (entity.Card, error) {
	if valerr := validate(card); valerr != nil {
		return entity.Card{}, valerr
	}
	if seterr := s.requireSet(ctx, card.SetID); seterr != nil {
		return entity.Card{}, seterr
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	} else {
		existing, dberr := s.catalogRepo.GetCard(ctx, s.logger, card.ID)
		if dberr != nil {
			return entity.Card{}, dberr
		} else if existing != nil {
			return entity.Card{}, errors.Conflict(fmt.Sprintf("Card with ID %s already exists.", card.ID))
		}
	}
	if dberr := s.catalogRepo.SetCard(ctx, s.logger, card); dberr != nil {
		return entity.Card{}, dberr
	}
	s.logger.WithCtx(ctx).Info().Msgf("Created %s card %s in set %s", card.Rarity, card.ID, card.SetID)
	return card, nil
}

func (s service) UpdateCard(ctx context.Context, id string, card entity.Card) (entity.Card, error) {
	existing, dberr := s.catalogRepo.GetCard(ctx, s.logger, id)
	if dberr != nil {
		return entity.Card{}, dberr
	} else if existing == nil {
		return entity.Card{}, errors.NotFound(fmt.Sprintf("Card with ID %s not found.", id))
	}
	card.ID = existing.ID
	card.Image = existing.Image
	if card.SetID == "" {
		card.SetID = existing.SetID
	}
	if valerr := validate(card); valerr != nil {
		return entity.Card{}, valerr
	}
	if card.SetID != existing.SetID {
		if seterr := s.requireSet(ctx, card.SetID); seterr != nil {
			return entity.Card{}, seterr
		}
	}
	if dberr := s.catalogRepo.SetCard(ctx, s.logger, card); dberr != nil {
		return entity.Card{}, dberr
	}
	s.logger.WithCtx(ctx).Info().Msgf("Updated card %s", card.ID)
	return card, nil
}

func (s service) DeleteCard(ctx context.Context, id string) error {
	existing, dberr := s.catalogRepo.GetCard(ctx, s.logger, id)
	if dberr != nil {
		return dberr
	} else if existing == nil {
		return errors.NotFound(fmt.Sprintf("Card with ID %s not found.", id))
	}
	if dberr := s.catalogRepo.DeleteCard(ctx, s.logger, *existing); dberr != nil {
		return dberr
	}
	s.logger.WithCtx(ctx).Info().Msgf("Deleted card %s from set %s", existing.ID, existing.SetID)
	return nil
}

func (s service) SetCardImage(ctx context.Context, id, image string) (entity.Card, error) {
	card, dberr := s.catalogRepo.GetCard(ctx, s.logger, id)
	if dberr != nil {
		return entity.Card{}, dberr
	} else if card == nil {
		return entity.Card{}, errors.NotFound("Card not available")
	}
	card.Image = image
	if dberr := s.catalogRepo.SetCard(ctx, s.logger, *card); dberr != nil {
		return entity.Card{}, dberr
	}
	return *card, nil
}

func (s service) ListSets(ctx context.Context) ([]entity.Set, error) {
	return s.catalogRepo.GetSets(ctx, s.logger)
}

func (s service) FindSetByID(ctx context.Context, id string) (*entity.Set, error) {
	return s.catalogRepo.GetSet(ctx, s.logger, id)
}

func (s service) CreateSet(ctx context.Context, set entity.Set) (entity.Set, error) {
	if valerr := validate(set); valerr != nil {
		return entity.Set{}, valerr
	}
	if set.ID == "" {
		set.ID = uuid.NewString()
	} else {
		existing, dberr := s.catalogRepo.GetSet(ctx, s.logger, set.ID)
		if dberr != nil {
			return entity.Set{}, dberr
		} else if existing != nil {
			return entity.Set{}, errors.Conflict(fmt.Sprintf("Set with ID %s already exists.", set.ID))
		}
	}
	set.TotalCards = 0
	if dberr := s.catalogRepo.SetSet(ctx, s.logger, set); dberr != nil {
		return entity.Set{}, dberr
	}
	s.logger.WithCtx(ctx).Info().Msgf("Created set %s (%s)", set.ID, set.Name)
	return set, nil
}

func (s service) UpdateSet(ctx context.Context, id string, set entity.Set) (entity.Set, error) {
	existing, dberr := s.catalogRepo.GetSet(ctx, s.logger, id)
	if dberr != nil {
		return entity.Set{}, dberr
	} else if existing == nil {
		return entity.Set{}, errors.NotFound(fmt.Sprintf("Set with ID %s not found.", id))
	}
	if valerr := validate(set); valerr != nil {
		return entity.Set{}, valerr
	}
	existing.Name = set.Name
	if set.Image != "" {
		existing.Image = set.Image
	}
	if dberr := s.catalogRepo.SetSet(ctx, s.logger, *existing); dberr != nil {
		return entity.Set{}, dberr
	}
	s.logger.WithCtx(ctx).Info().Msgf("Updated set %s (%s)", existing.ID, existing.Name)
	return *existing, nil
}

func (s service) DeleteSet(ctx context.Context, id string) error {
	existing, dberr := s.catalogRepo.GetSet(ctx, s.logger, id)
	if dberr != nil {
		return dberr
	} else if existing == nil {
		return errors.NotFound(fmt.Sprintf("Set with ID %s not found.", id))
	}
	if existing.TotalCards > 0 {
		return errors.BadRequest(fmt.Sprintf("Cannot delete Set with ID %s because it still contains %d associated cards.", id, existing.TotalCards))
	}
	if dberr := s.catalogRepo.DeleteSet(ctx, s.logger, id); dberr != nil {
		return dberr
	}
	s.logger.WithCtx(ctx).Info().Msgf("Deleted set %s", id)
	return nil
}

func (s service) SetCardIDs(ctx context.Context, setID string) ([]string, error) {
	return s.catalogRepo.GetSetCardIDs(ctx, s.logger, setID)
}

// requireSet fails with a validation response when setID names no set.
func (s service) requireSet(ctx context.Context, setID string) error {
	set, dberr := s.catalogRepo.GetSet(ctx, s.logger, setID)
	if dberr != nil {
		return dberr
	} else if set == nil {
		return errors.GenerateValidationErrorResponse([]error{errors.New("set_id:Set doesn't exist")})
	}
	return nil
}

// Helper to validate catalog data against validation-tags mentioned in its entity.
func validate(v interface{}) error {
	_, valerr := govalidator.ValidateStruct(v)
	if valerr != nil {
		if errs, ok := valerr.(govalidator.Errors); ok {
			return errors.GenerateValidationErrorResponse(errs.Errors())
		}
		return errors.GenerateValidationErrorResponse([]error{valerr})
	}
	return nil
}
