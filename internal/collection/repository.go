// Collection repository encapsulates the data access logic (interactions with the DB) related to viewer collections in Cardpack.

package collection

import (
	"Cardpack/internal/catalog"
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/pkg/db"
	"Cardpack/pkg/log"
	"context"
	"sort"
	"strconv"
)

type Repository interface {
	// IncrCard adds quantity copies of a card to a viewer's collection, returns the new quantity.
	IncrCard(ctx context.Context, logger log.Logger, viewerID, cardID string, quantity int64) (int64, error)
	// CountCards returns the number of distinct cards a viewer owns.
	CountCards(ctx context.Context, logger log.Logger, viewerID string) (int64, error)
	// CountCardsInSet returns the number of distinct cards of a set a viewer owns.
	CountCardsInSet(ctx context.Context, logger log.Logger, viewerID, setID string) (int64, error)
	// GetCollection returns every line of a viewer's collection ordered by card id.
	GetCollection(ctx context.Context, logger log.Logger, viewerID string) ([]entity.CollectionEntry, error)
}

// repository struct of collection Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of collection repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func collectionKey(viewerID string) string {
	return "collection:" + viewerID
}

func (r repository) IncrCard(ctx context.Context, logger log.Logger, viewerID, cardID string, quantity int64) (int64, error) {
	total, dberr := r.db.Client().HIncrBy(ctx, collectionKey(viewerID), cardID, quantity).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HIncrBy() in collection.IncrCard")
		return 0, errors.InternalServerError("")
	}
	return total, nil
}

func (r repository) CountCards(ctx context.Context, logger log.Logger, viewerID string) (int64, error) {
	count, dberr := r.db.Client().HLen(ctx, collectionKey(viewerID)).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HLen() in collection.CountCards")
		return 0, errors.InternalServerError("")
	}
	return count, nil
}

func (r repository) CountCardsInSet(ctx context.Context, logger log.Logger, viewerID, setID string) (int64, error) {
	owned, dberr := r.db.Client().HKeys(ctx, collectionKey(viewerID)).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HKeys() in collection.CountCardsInSet")
		return 0, errors.InternalServerError("")
	}
	inSet, dberr := r.db.Client().SMembers(ctx, catalog.SetCardsKey(setID)).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SMembers() in collection.CountCardsInSet")
		return 0, errors.InternalServerError("")
	}
	members := make(map[string]struct{}, len(inSet))
	for _, id := range inSet {
		members[id] = struct{}{}
	}
	var count int64
	for _, id := range owned {
		if _, ok := members[id]; ok {
			count++
		}
	}
	return count, nil
}

func (r repository) GetCollection(ctx context.Context, logger log.Logger, viewerID string) ([]entity.CollectionEntry, error) {
	values, dberr := r.db.Client().HGetAll(ctx, collectionKey(viewerID)).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in collection.GetCollection")
		return nil, errors.InternalServerError("")
	}
	entries := make([]entity.CollectionEntry, 0, len(values))
	for cardID, raw := range values {
		quantity, prserr := strconv.ParseInt(raw, 10, 64)
		if prserr != nil {
			logger.WithCtx(ctx).Warn().Err(prserr).Msgf("Ignoring unparsable quantity of card %s for viewer %s", cardID, viewerID)
			continue
		}
		entries = append(entries, entity.CollectionEntry{CardID: cardID, Quantity: quantity})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CardID < entries[j].CardID })
	return entries, nil
}
