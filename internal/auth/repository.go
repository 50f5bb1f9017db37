// Auth repository encapsulates the data access logic (interactions with the DB) related to admin token revocation in Cardpack.

package auth

import (
	"Cardpack/internal/errors"
	"Cardpack/pkg/db"
	"Cardpack/pkg/log"
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// RevokeToken marks the token id as revoked until the token would have expired anyway.
	RevokeToken(ctx context.Context, logger log.Logger, tokenID string, ttl time.Duration) error
	// TokenRevoked checks whether the token id was revoked.
	TokenRevoked(ctx context.Context, logger log.Logger, tokenID string) (bool, error)
}

// repository struct of auth Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of auth repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func revokedKey(tokenID string) string {
	return "auth:revoked:" + tokenID
}

// Returns nil if the token got successfully revoked.
func (r repository) RevokeToken(ctx context.Context, logger log.Logger, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// already expired, nothing to remember
		return nil
	}
	dberr := r.db.Client().Set(ctx, revokedKey(tokenID), 1, ttl).Err()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Set in auth.RevokeToken")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns true if tokenID was revoked and the revocation hasn't expired yet.
func (r repository) TokenRevoked(ctx context.Context, logger log.Logger, tokenID string) (bool, error) {
	_, dberr := r.db.Client().Get(ctx, revokedKey(tokenID)).Result()
	if dberr == redis.Nil {
		return false, nil
	} else if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Get in auth.TokenRevoked")
		return false, errors.InternalServerError("")
	}
	return true, nil
}
