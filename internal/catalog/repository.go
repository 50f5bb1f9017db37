// Catalog repository encapsulates the data access logic (interactions with the DB) related to Cards and Sets in Cardpack.

package catalog

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/pkg/db"
	"Cardpack/pkg/log"
	"context"
	"sort"

	"github.com/go-redis/redis/v8"
)

const (
	cardIndexKey = "card:index"
	setIndexKey  = "set:index"
)

type Repository interface {
	// GetCard returns the card with the given id, nil if it doesn't exist.
	GetCard(ctx context.Context, logger log.Logger, id string) (*entity.Card, error)
	// GetCards returns every card in the catalog ordered by id.
	GetCards(ctx context.Context, logger log.Logger) ([]entity.Card, error)
	// SetCard adds or updates a card and indexes it under its set.
	SetCard(ctx context.Context, logger log.Logger, card entity.Card) error
	// GetSet returns the set with the given id, nil if it doesn't exist.
	GetSet(ctx context.Context, logger log.Logger, id string) (*entity.Set, error)
	// GetSets returns every set ordered by id.
	GetSets(ctx context.Context, logger log.Logger) ([]entity.Set, error)
	// SetSet adds or updates a set.
	SetSet(ctx context.Context, logger log.Logger, set entity.Set) error
	// DeleteCard removes a card and unindexes it from the catalog and its set.
	DeleteCard(ctx context.Context, logger log.Logger, card entity.Card) error
	// DeleteSet removes a set, its index entry and its card membership.
	DeleteSet(ctx context.Context, logger log.Logger, id string) error
	// GetSetCardIDs returns the ids of the cards belonging to a set.
	GetSetCardIDs(ctx context.Context, logger log.Logger, setID string) ([]string, error)
}

// repository struct of catalog Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of catalog repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func cardKey(id string) string {
	return "card:" + id
}

func setKey(id string) string {
	return "set:" + id
}

// SetCardsKey is the redis set holding the card ids of a set, shared with the collection ledger.
func SetCardsKey(setID string) string {
	return "set:cards:" + setID
}

func (r repository) GetCard(ctx context.Context, logger log.Logger, id string) (*entity.Card, error) {
	values, dberr := r.db.Client().HGetAll(ctx, cardKey(id)).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in catalog.GetCard")
		return nil, errors.InternalServerError("")
	} else if len(values) == 0 {
		return nil, nil
	}
	card := cardFromHash(values)
	return &card, nil
}

func (r repository) GetCards(ctx context.Context, logger log.Logger) ([]entity.Card, error) {
	ids, dberr := r.db.Client().SMembers(ctx, cardIndexKey).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SMembers() in catalog.GetCards")
		return nil, errors.InternalServerError("")
	}
	sort.Strings(ids)

	cmds := make([]*redis.StringStringMapCmd, len(ids))
	_, dberr = r.db.Client().Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, cardKey(id))
		}
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during HGetAll pipeline in catalog.GetCards")
		return nil, errors.InternalServerError("")
	}
	cards := make([]entity.Card, 0, len(ids))
	for _, cmd := range cmds {
		if values := cmd.Val(); len(values) > 0 {
			cards = append(cards, cardFromHash(values))
		}
	}
	return cards, nil
}

func (r repository) SetCard(ctx context.Context, logger log.Logger, card entity.Card) error {
	previous, dberr := r.GetCard(ctx, logger, card.ID)
	if dberr != nil {
		return dberr
	}
	_, dberr = r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != nil && previous.SetID != card.SetID {
			pipe.SRem(ctx, SetCardsKey(previous.SetID), card.ID)
		}
		pipe.HSet(ctx, cardKey(card.ID),
			"id", card.ID,
			"name", card.Name,
			"rarity", string(card.Rarity),
			"set_id", card.SetID,
			"description", card.Description,
			"image", card.Image,
		)
		pipe.SAdd(ctx, cardIndexKey, card.ID)
		pipe.SAdd(ctx, SetCardsKey(card.SetID), card.ID)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured in catalog.SetCard transaction")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) GetSet(ctx context.Context, logger log.Logger, id string) (*entity.Set, error) {
	available, dberr := r.db.Client().Exists(ctx, setKey(id)).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Exists() in catalog.GetSet")
		return nil, errors.InternalServerError("")
	} else if available == 0 {
		return nil, nil
	}
	set := &entity.Set{}
	if dberr := r.db.Client().HGetAll(ctx, setKey(id)).Scan(set); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in catalog.GetSet")
		return nil, errors.InternalServerError("")
	}
	total, dberr := r.db.Client().SCard(ctx, SetCardsKey(id)).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SCard() in catalog.GetSet")
		return nil, errors.InternalServerError("")
	}
	set.TotalCards = int(total)
	return set, nil
}

func (r repository) GetSets(ctx context.Context, logger log.Logger) ([]entity.Set, error) {
	ids, dberr := r.db.Client().SMembers(ctx, setIndexKey).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SMembers() in catalog.GetSets")
		return nil, errors.InternalServerError("")
	}
	sort.Strings(ids)
	sets := make([]entity.Set, 0, len(ids))
	for _, id := range ids {
		set, dberr := r.GetSet(ctx, logger, id)
		if dberr != nil {
			return nil, dberr
		}
		if set != nil {
			sets = append(sets, *set)
		}
	}
	return sets, nil
}

func (r repository) SetSet(ctx context.Context, logger log.Logger, set entity.Set) error {
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, setKey(set.ID), "id", set.ID, "name", set.Name, "image", set.Image)
		pipe.SAdd(ctx, setIndexKey, set.ID)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured in catalog.SetSet transaction")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) DeleteCard(ctx context.Context, logger log.Logger, card entity.Card) error {
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cardKey(card.ID))
		pipe.SRem(ctx, cardIndexKey, card.ID)
		pipe.SRem(ctx, SetCardsKey(card.SetID), card.ID)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured in catalog.DeleteCard transaction")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) DeleteSet(ctx context.Context, logger log.Logger, id string) error {
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, setKey(id), SetCardsKey(id))
		pipe.SRem(ctx, setIndexKey, id)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured in catalog.DeleteSet transaction")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) GetSetCardIDs(ctx context.Context, logger log.Logger, setID string) ([]string, error) {
	ids, dberr := r.db.Client().SMembers(ctx, SetCardsKey(setID)).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SMembers() in catalog.GetSetCardIDs")
		return nil, errors.InternalServerError("")
	}
	return ids, nil
}

func cardFromHash(values map[string]string) entity.Card {
	return entity.Card{
		ID:          values["id"],
		Name:        values["name"],
		Rarity:      entity.Rarity(values["rarity"]),
		SetID:       values["set_id"],
		Description: values["description"],
		Image:       values["image"],
	}
}
