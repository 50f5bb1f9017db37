// Mock methods required in Cardpack tests are all here.

package test

import (
	"Cardpack/pkg/db"
	"Cardpack/pkg/middlewares"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// MockRouter returns a fresh gin engine set up the way the server sets up its own.
func MockRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middlewares.CORSMiddleware("*")) // CORS middleware which allows request from all origin
	router.Use(middlewares.CorrelationMiddleware())
	return router
}

// MockRedis starts a miniredis server for the duration of the test and returns a client to it.
func MockRedis(t *testing.T) (*db.RedisDB, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return db.NewFromClient(client), mr
}

// Secret used to sign admin tokens in tests.
const MockAdminSecret = "MockAdminSecret"

// MockAdminToken signs an HS256 admin token with MockAdminSecret.
func MockAdminToken(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":  uuid.NewString(),
		"sub":  "test-admin",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(MockAdminSecret))
	if err != nil {
		t.Fatalf("couldn't sign admin token: %v", err)
	}
	return token
}
