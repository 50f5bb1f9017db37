// Card image upload of the admin surface.

package admin

import (
	"Cardpack/internal/catalog"
	"Cardpack/internal/errors"
	"Cardpack/pkg/log"
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"
)

// Largest card image accepted.
const maxImageSize = 5 << 20

// URL prefix the assets directory is served under.
const AssetsURLPrefix = "/assets"

// Image types a card may use, keyed by the extension filetype reports.
var imageTypes = map[string]bool{
	"png":  true,
	"jpg":  true,
	"gif":  true,
	"webp": true,
}

// uploadCardImage stores the raw request body as the card's image.
// The type is sniffed from the content, the Content-Type header is ignored.
func uploadCardImage(service catalog.Service, assetsPath string, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		id := gctx.Param("id")
		card, err := service.FindCardByID(gctx, id)
		if err != nil {
			abortWithError(gctx, err)
			return
		} else if card == nil {
			gctx.AbortWithStatusJSON(http.StatusNotFound, errors.NotFound("Card not available"))
			return
		}

		content, readerr := io.ReadAll(io.LimitReader(gctx.Request.Body, maxImageSize+1))
		if readerr != nil {
			logger.WithCtx(gctx).Warn().Err(readerr).Msg("Could not read card image upload")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest(""))
			return
		} else if len(content) > maxImageSize {
			gctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errors.ErrorResponse{
				Status:  http.StatusRequestEntityTooLarge,
				Message: "Image is larger than 5MB",
			})
			return
		}
		kind, matcherr := filetype.Match(content)
		if matcherr != nil || !filetype.IsImage(content) || !imageTypes[kind.Extension] {
			gctx.AbortWithStatusJSON(http.StatusUnsupportedMediaType, errors.ErrorResponse{
				Status:  http.StatusUnsupportedMediaType,
				Message: "Only png, jpg, gif and webp images are accepted",
			})
			return
		}

		dir := filepath.Join(assetsPath, "cards")
		if oserr := os.MkdirAll(dir, 0o755); oserr != nil {
			logger.WithCtx(gctx).Error().Err(oserr).Msg("Cannot create card assets directory")
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}
		name := card.ID + "." + kind.Extension
		if oserr := writeFileAtomic(filepath.Join(dir, name), content); oserr != nil {
			logger.WithCtx(gctx).Error().Err(oserr).Msg("Cannot store card image " + name)
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}

		previous := card.Image
		updated, err := service.SetCardImage(gctx, card.ID, AssetsURLPrefix+"/cards/"+name)
		if err != nil {
			abortWithError(gctx, err)
			return
		}
		// an image of another type is left behind otherwise
		if previous != updated.Image {
			removeCardImage(gctx, assetsPath, previous, logger)
		}
		gctx.JSON(http.StatusOK, updated)
	}
}

// removeCardImage deletes a stored card image, images hosted elsewhere are left alone.
func removeCardImage(gctx *gin.Context, assetsPath, image string, logger log.Logger) {
	if !strings.HasPrefix(image, AssetsURLPrefix+"/cards/") {
		return
	}
	stale := filepath.Join(assetsPath, "cards", filepath.Base(image))
	if oserr := os.Remove(stale); oserr != nil && !os.IsNotExist(oserr) {
		logger.WithCtx(gctx).Warn().Err(oserr).Msg("Cannot delete card image " + stale)
	}
}

func writeFileAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, bytes.NewReader(content)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
