// Exposes the REST APIs related to admin authentication in Cardpack.

package auth

import (
	"Cardpack/internal/errors"
	"Cardpack/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers the auth handlers onto the admin group, which must already run AdminMiddleware.
func APIHandlers(adminGroup *gin.RouterGroup, authService Service, logger log.Logger) {
	adminGroup.GET("/whoami", whoami())
	adminGroup.POST("/logout", logout(authService, logger))
}

func whoami() gin.HandlerFunc {
	return func(gctx *gin.Context) {
		claims, ok := gctx.Value(ClaimsKey).(*AdminClaims)
		if !ok {
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}
		gctx.JSON(http.StatusOK, gin.H{"subject": claims.Subject, "role": claims.Role})
	}
}

// logout revokes the bearer token the request was made with.
func logout(authService Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		claims, ok := gctx.Value(ClaimsKey).(*AdminClaims)
		if !ok {
			// Type assertion error
			logger.WithCtx(gctx).Error().Msg("Type assertion error in auth.logout")
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}
		if err := authService.Revoke(gctx, claims); err != nil {
			err, ok := err.(errors.ErrorResponse)
			if !ok {
				gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
				return
			}
			gctx.AbortWithStatusJSON(err.Status, err)
			return
		}
		gctx.Status(http.StatusOK)
	}
}
