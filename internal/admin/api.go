// Exposes the REST APIs used by the streamer to run Cardpack.

package admin

import (
	"Cardpack/internal/catalog"
	"Cardpack/internal/collection"
	"Cardpack/internal/droprate"
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/internal/metrics"
	"Cardpack/internal/sequencer"
	"Cardpack/internal/viewer"
	"Cardpack/pkg/log"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Origin of openings enqueued by hand.
const originAdmin = "admin"

// Queue is the sequencer as seen by the admin surface.
type Queue interface {
	Enqueue(req entity.OpeningRequest) error
	State() sequencer.State
}

// Services needed by the admin handlers.
type Services struct {
	Catalog    catalog.Service
	DropRates  droprate.Service
	Viewers    viewer.Service
	Collection collection.Service
	Metrics    metrics.Service
	Queue      Queue
	// Directory card images are written to
	AssetsPath string
}

// Registers all of the REST API handlers of the admin surface onto the admin group.
// The group must already carry the admin auth middleware.
func APIHandlers(adminGroup *gin.RouterGroup, services Services, logger log.Logger) {
	adminGroup.GET("/drop-rates", listDropRates(services.DropRates))
	adminGroup.PUT("/drop-rates/:rarity", updateDropRate(services.DropRates, logger))

	adminGroup.GET("/sets", listSets(services.Catalog))
	adminGroup.POST("/sets", createSet(services.Catalog, logger))
	adminGroup.GET("/sets/:id", getSet(services.Catalog))
	adminGroup.PUT("/sets/:id", updateSet(services.Catalog, logger))
	adminGroup.DELETE("/sets/:id", deleteSet(services.Catalog))

	adminGroup.GET("/cards", listCards(services.Catalog))
	adminGroup.POST("/cards", createCard(services.Catalog, logger))
	adminGroup.GET("/cards/:id", getCard(services.Catalog))
	adminGroup.PUT("/cards/:id", updateCard(services.Catalog, logger))
	adminGroup.DELETE("/cards/:id", deleteCard(services.Catalog, services.AssetsPath, logger))
	adminGroup.PUT("/cards/:id/image", uploadCardImage(services.Catalog, services.AssetsPath, logger))

	adminGroup.GET("/viewers/:id/collection", getCollection(services.Viewers, services.Collection))

	adminGroup.POST("/openings", enqueueOpening(services.Viewers, services.Catalog, services.Queue, logger))
	adminGroup.GET("/queue", queueState(services.Queue))
	adminGroup.GET("/metrics", getMetrics(services.Metrics))
}

// Body of PUT /drop-rates/:rarity
type dropRateInput struct {
	Rate string `json:"rate" valid:"required~rate:missing,probability~rate:must lie between 0 and 1"`
}

// Body of POST /openings
type openingInput struct {
	TwitchID string `json:"twitch_id" valid:"required~twitch_id:missing,nospace~twitch_id:cannot contain spaces"`
	Username string `json:"username" valid:"required~username:missing,stringlength(1|64)~username:too long"`
	SetID    string `json:"set_id" valid:"required~set_id:missing"`
}

// abortWithError replies with the HTTP form of err.
func abortWithError(gctx *gin.Context, err error) {
	resp := errors.FromPipeline(err)
	gctx.AbortWithStatusJSON(resp.Status, resp)
}

// Helper to validate request bodies against their validation-tags.
func validate(v interface{}) error {
	if _, valerr := govalidator.ValidateStruct(v); valerr != nil {
		if errs, ok := valerr.(govalidator.Errors); ok {
			return errors.GenerateValidationErrorResponse(errs.Errors())
		}
		return errors.GenerateValidationErrorResponse([]error{valerr})
	}
	return nil
}

func listDropRates(service droprate.Service) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		rates, err := service.ListDropRates(gctx)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, rates)
	}
}

func updateDropRate(service droprate.Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var input dropRateInput
		var raw map[string]interface{}
		if binderr := gctx.ShouldBindJSON(&raw); binderr != nil {
			logger.WithCtx(gctx).Debug().Err(binderr).Msg("Binding error occured with drop rate body.")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest(""))
			return
		}
		// numbers and numeric strings are both accepted
		if rate, ok := raw["rate"]; ok && rate != nil {
			input.Rate = fmt.Sprint(rate)
		}
		if valerr := validate(input); valerr != nil {
			abortWithError(gctx, valerr)
			return
		}
		rate, prserr := strconv.ParseFloat(input.Rate, 64)
		if prserr != nil {
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest(""))
			return
		}
		updated, err := service.UpdateDropRate(gctx, entity.Rarity(strings.ToUpper(gctx.Param("rarity"))), rate)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, updated)
	}
}

func listSets(service catalog.Service) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		sets, err := service.ListSets(gctx)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, sets)
	}
}

func createSet(service catalog.Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var set entity.Set
		if binderr := gctx.ShouldBindJSON(&set); binderr != nil {
			logger.WithCtx(gctx).Debug().Err(binderr).Msg("Binding error occured with Set struct.")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest(""))
			return
		}
		created, err := service.CreateSet(gctx, set)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusCreated, created)
	}
}

func getSet(service catalog.Service) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		set, err := service.FindSetByID(gctx, gctx.Param("id"))
		if err != nil {
			abortWithError(gctx, err)
			return
		} else if set == nil {
			gctx.AbortWithStatusJSON(http.StatusNotFound, errors.NotFound("Set not available"))
			return
		}
		gctx.JSON(http.StatusOK, set)
	}
}

func updateSet(service catalog.Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var set entity.Set
		if binderr := gctx.ShouldBindJSON(&set); binderr != nil {
			logger.WithCtx(gctx).Debug().Err(binderr).Msg("Binding error occured with Set struct.")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest(""))
			return
		}
		updated, err := service.UpdateSet(gctx, gctx.Param("id"), set)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, updated)
	}
}

// deleteSet refuses sets which still hold cards.
func deleteSet(service catalog.Service) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		if err := service.DeleteSet(gctx, gctx.Param("id")); err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.Status(http.StatusNoContent)
	}
}

// listCards optionally filters by ?set_id= and ?rarity=.
func listCards(service catalog.Service) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		cards, err := service.ListCards(gctx)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		setID, rarity := gctx.Query("set_id"), entity.Rarity(strings.ToUpper(gctx.Query("rarity")))
		filtered := make([]entity.Card, 0, len(cards))
		for _, card := range cards {
			if (setID == "" || card.SetID == setID) && (rarity == "" || card.Rarity == rarity) {
				filtered = append(filtered, card)
			}
		}
		gctx.JSON(http.StatusOK, filtered)
	}
}

func createCard(service catalog.Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var card entity.Card
		if binderr := gctx.ShouldBindJSON(&card); binderr != nil {
			logger.WithCtx(gctx).Debug().Err(binderr).Msg("Binding error occured with Card struct.")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest(""))
			return
		}
		// images are only set through the upload endpoint
		card.Image = ""
		created, err := service.CreateCard(gctx, card)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusCreated, created)
	}
}

func getCard(service catalog.Service) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		card, err := service.FindCardByID(gctx, gctx.Param("id"))
		if err != nil {
			abortWithError(gctx, err)
			return
		} else if card == nil {
			gctx.AbortWithStatusJSON(http.StatusNotFound, errors.NotFound("Card not available"))
			return
		}
		gctx.JSON(http.StatusOK, card)
	}
}

func updateCard(service catalog.Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var card entity.Card
		if binderr := gctx.ShouldBindJSON(&card); binderr != nil {
			logger.WithCtx(gctx).Debug().Err(binderr).Msg("Binding error occured with Card struct.")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest(""))
			return
		}
		updated, err := service.UpdateCard(gctx, gctx.Param("id"), card)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, updated)
	}
}

// deleteCard also removes the uploaded image of the card.
func deleteCard(service catalog.Service, assetsPath string, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		card, err := service.FindCardByID(gctx, gctx.Param("id"))
		if err != nil {
			abortWithError(gctx, err)
			return
		} else if card == nil {
			gctx.AbortWithStatusJSON(http.StatusNotFound, errors.NotFound("Card not available"))
			return
		}
		if err := service.DeleteCard(gctx, card.ID); err != nil {
			abortWithError(gctx, err)
			return
		}
		removeCardImage(gctx, assetsPath, card.Image, logger)
		gctx.Status(http.StatusNoContent)
	}
}

func getCollection(viewers viewer.Service, ledger collection.Service) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		v, err := viewers.FindByID(gctx, gctx.Param("id"))
		if err != nil {
			abortWithError(gctx, err)
			return
		} else if v == nil {
			gctx.AbortWithStatusJSON(http.StatusNotFound, errors.NotFound("Viewer not available"))
			return
		}
		entries, err := ledger.ListCollection(gctx, v.ID)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{"viewer": v, "cards": entries})
	}
}

// enqueueOpening queues a pack opening as if the viewer had redeemed the reward.
func enqueueOpening(viewers viewer.Service, sets catalog.Service, queue Queue, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var input openingInput
		if binderr := gctx.ShouldBindJSON(&input); binderr != nil {
			logger.WithCtx(gctx).Debug().Err(binderr).Msg("Binding error occured with opening body.")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest(""))
			return
		}
		if valerr := validate(input); valerr != nil {
			abortWithError(gctx, valerr)
			return
		}
		set, err := sets.FindSetByID(gctx, input.SetID)
		if err != nil {
			abortWithError(gctx, err)
			return
		} else if set == nil {
			gctx.AbortWithStatusJSON(http.StatusNotFound, errors.NotFound("Set not available"))
			return
		}
		v, err := viewers.FindOrCreate(gctx, input.TwitchID, input.Username)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		req := entity.OpeningRequest{
			RequestID:        uuid.NewString(),
			ViewerID:         v.ID,
			ExternalViewerID: v.TwitchID,
			DisplayName:      v.Username,
			SetID:            set.ID,
			OriginClient:     originAdmin,
		}
		if qerr := queue.Enqueue(req); qerr != nil {
			logger.WithCtx(gctx).Error().Err(qerr).Msg("Could not enqueue manual opening")
			gctx.AbortWithStatusJSON(http.StatusServiceUnavailable, errors.ServiceUnavailable(""))
			return
		}
		logger.WithCtx(gctx).Info().Str("request_id", req.RequestID).Msg("Manual pack opening enqueued")
		gctx.JSON(http.StatusAccepted, req)
	}
}

func queueState(queue Queue) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		gctx.JSON(http.StatusOK, queue.State())
	}
}

func getMetrics(service metrics.Service) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		counters, err := service.GetMetrics(gctx)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		gctx.JSON(http.StatusOK, counters)
	}
}
