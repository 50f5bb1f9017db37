// Auth middleware is used to validate the admin JWT sent via the Authorization header.
// This verification is needed for every endpoint of the admin surface.

package auth

import (
	"Cardpack/internal/errors"
	"Cardpack/pkg/log"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// This middleware verifies the HS256 bearer token, its role claim and its revocation state.
// Blocks the request to go further into other handlers if token is invalid.
func AdminMiddleware(logger log.Logger, authRepo Repository, secret string) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		token := fetchBearerToken(gctx)
		if token == "" {
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, errors.Unauthorized(""))
			return
		}
		claims := &AdminClaims{}
		vrftoken, valerr := parseIntoJWT(gctx, logger, secret, token, claims)
		if valerr != nil || !vrftoken.Valid {
			// Abort the call chain for the request here as the admin is unauthenticated
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, errors.Unauthorized(""))
			return
		}
		if claims.Role != RoleAdmin {
			gctx.AbortWithStatusJSON(http.StatusForbidden, errors.Forbidden(""))
			return
		}
		if claims.ID != "" {
			revoked, dberr := authRepo.TokenRevoked(gctx, logger, claims.ID)
			if dberr != nil {
				gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
				return
			} else if revoked {
				gctx.AbortWithStatusJSON(http.StatusUnauthorized, errors.Unauthorized("Token has been revoked"))
				return
			}
		}
		// This pair will be used further down in the handler chain
		gctx.Set(ClaimsKey, claims)
		gctx.Next()
	}
}

// Helper to fetch token string from the Authorization header.
func fetchBearerToken(gctx *gin.Context) string {
	scheme, token, ok := strings.Cut(gctx.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Helper to parse token string fetched from header into claims.
func parseIntoJWT(gctx *gin.Context, logger log.Logger, secret string, token string, claims jwt.Claims) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		// Check the signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			err := errors.New(fmt.Sprintf("Unexpected signing method found: %s", t.Header["alg"]))
			logger.WithCtx(gctx).Warn().Err(err).Msg("Rejected admin token")
			return nil, err
		}
		return []byte(secret), nil
	})
}
