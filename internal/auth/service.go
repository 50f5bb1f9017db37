// Service layer of the internal package auth.

package auth

import (
	"Cardpack/internal/errors"
	"Cardpack/pkg/log"
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Role claim every admin token carries.
const RoleAdmin = "admin"

// Key of the verified AdminClaims in gin's context.
const ClaimsKey = "AdminClaims"

// AdminClaims are the claims of an admin bearer token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service layer of internal package auth which issues and revokes admin tokens.
type Service interface {
	// IssueToken signs an admin token for subject, valid for ttl.
	IssueToken(ctx context.Context, subject string, ttl time.Duration) (string, error)
	// Revoke makes the token described by claims unusable.
	Revoke(ctx context.Context, claims *AdminClaims) error
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	signingKey string
	authRepo   Repository
	logger     log.Logger
}

func NewService(signingKey string, authRepo Repository, logger log.Logger) Service {
	return service{signingKey, authRepo, logger}
}

func (s service) IssueToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token, jwterr := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString([]byte(s.signingKey))
	if jwterr != nil {
		s.logger.WithCtx(ctx).Error().Err(jwterr).Msg("Error occured during admin token signing")
		return "", errors.InternalServerError("")
	}
	return token, nil
}

func (s service) Revoke(ctx context.Context, claims *AdminClaims) error {
	if claims.ID == "" {
		return errors.BadRequest("Token has no id and can't be revoked")
	}
	ttl := time.Hour
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if dberr := s.authRepo.RevokeToken(ctx, s.logger, claims.ID, ttl); dberr != nil {
		return dberr
	}
	s.logger.WithCtx(ctx).Info().Str("subject", claims.Subject).Msg("Admin token revoked")
	return nil
}
