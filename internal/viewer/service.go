// Service layer of the internal package viewer.

package viewer

import (
	"Cardpack/internal/entity"
	"Cardpack/pkg/log"
	"context"

	"github.com/google/uuid"
)

// Service layer of internal package viewer which resolves stream viewers to local identities.
type Service interface {
	// FindOrCreate returns the viewer bound to a twitch id, creating it on first sight.
	// A changed display name is written back.
	FindOrCreate(ctx context.Context, twitchID, username string) (entity.Viewer, error)
	// FindByID returns nil when no viewer has the given id.
	FindByID(ctx context.Context, id string) (*entity.Viewer, error)
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	viewerRepo Repository
	logger     log.Logger
}

func NewService(viewerRepo Repository, logger log.Logger) Service {
	return service{viewerRepo, logger}
}

func (s service) FindOrCreate(ctx context.Context, twitchID, username string) (entity.Viewer, error) {
	id, dberr := s.viewerRepo.GetViewerIDByTwitchID(ctx, s.logger, twitchID)
	if dberr != nil {
		return entity.Viewer{}, dberr
	}
	if id == "" {
		id, dberr = s.viewerRepo.ClaimTwitchID(ctx, s.logger, twitchID, uuid.NewString())
		if dberr != nil {
			return entity.Viewer{}, dberr
		}
	}

	existing, dberr := s.viewerRepo.GetViewer(ctx, s.logger, id)
	if dberr != nil {
		return entity.Viewer{}, dberr
	}
	if existing != nil && existing.Username == username {
		return *existing, nil
	}

	viewer := entity.Viewer{ID: id, TwitchID: twitchID, Username: username}
	if dberr := s.viewerRepo.SetViewer(ctx, s.logger, viewer); dberr != nil {
		return entity.Viewer{}, dberr
	}
	if existing == nil {
		s.logger.WithCtx(ctx).Info().Msgf("Created viewer %s for twitch user %s", id, username)
	} else {
		s.logger.WithCtx(ctx).Info().Msgf("Viewer %s renamed from %s to %s", id, existing.Username, username)
	}
	return viewer, nil
}

func (s service) FindByID(ctx context.Context, id string) (*entity.Viewer, error) {
	return s.viewerRepo.GetViewer(ctx, s.logger, id)
}
