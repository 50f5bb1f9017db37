// Viewer repository encapsulates the data access logic (interactions with the DB) related to Viewers in Cardpack.

package viewer

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/pkg/db"
	"Cardpack/pkg/log"
	"context"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// GetViewer returns the viewer with the given id, nil if it doesn't exist.
	GetViewer(ctx context.Context, logger log.Logger, id string) (*entity.Viewer, error)
	// GetViewerIDByTwitchID resolves the twitch index, "" if the twitch id is unknown.
	GetViewerIDByTwitchID(ctx context.Context, logger log.Logger, twitchID string) (string, error)
	// ClaimTwitchID points the twitch index at id unless another viewer claimed it first.
	// Returns the id the index points at afterwards.
	ClaimTwitchID(ctx context.Context, logger log.Logger, twitchID, id string) (string, error)
	// SetViewer adds or updates the viewer hash.
	SetViewer(ctx context.Context, logger log.Logger, viewer entity.Viewer) error
}

// repository struct of viewer Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func viewerKey(id string) string {
	return "viewer:" + id
}

func twitchIndexKey(twitchID string) string {
	return "viewer:twitch:" + twitchID
}

// Returns the viewer data object if a viewer with the given id is found in the DB.
func (r repository) GetViewer(ctx context.Context, logger log.Logger, id string) (*entity.Viewer, error) {
	available, dberr := r.db.Client().Exists(ctx, viewerKey(id)).Result()
	if dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Exists() in viewer.GetViewer")
		return nil, errors.InternalServerError("")
	} else if available == 0 {
		// Viewer not available
		return nil, nil
	}
	viewer := &entity.Viewer{}
	if dberr := r.db.Client().HGetAll(ctx, viewerKey(id)).Scan(viewer); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in viewer.GetViewer")
		return nil, errors.InternalServerError("")
	}
	return viewer, nil
}

func (r repository) GetViewerIDByTwitchID(ctx context.Context, logger log.Logger, twitchID string) (string, error) {
	id, dberr := r.db.Client().Get(ctx, twitchIndexKey(twitchID)).Result()
	if dberr == redis.Nil {
		return "", nil
	} else if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Get() in viewer.GetViewerIDByTwitchID")
		return "", errors.InternalServerError("")
	}
	return id, nil
}

func (r repository) ClaimTwitchID(ctx context.Context, logger log.Logger, twitchID, id string) (string, error) {
	claimed, dberr := r.db.Client().SetNX(ctx, twitchIndexKey(twitchID), id, 0).Result()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SetNX() in viewer.ClaimTwitchID")
		return "", errors.InternalServerError("")
	}
	if claimed {
		return id, nil
	}
	// Lost the race, someone else created the viewer in between
	return r.GetViewerIDByTwitchID(ctx, logger, twitchID)
}

func (r repository) SetViewer(ctx context.Context, logger log.Logger, viewer entity.Viewer) error {
	_, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, viewerKey(viewer.ID), "id", viewer.ID, "twitch_id", viewer.TwitchID, "username", viewer.Username)
		pipe.SAdd(ctx, "viewer:index", viewer.ID)
		return nil
	})
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured in viewer.SetViewer transaction")
		return errors.InternalServerError("")
	}
	return nil
}
