// List of all REST API endpoints being used by Cardpack can be found here.

package main

import (
	"Cardpack/internal/admin"
	"Cardpack/internal/auth"
	"Cardpack/internal/catalog"
	"Cardpack/internal/collection"
	"Cardpack/internal/config"
	"Cardpack/internal/droprate"
	"Cardpack/internal/eventsub"
	"Cardpack/internal/metrics"
	"Cardpack/internal/overlay"
	"Cardpack/internal/sequencer"
	"Cardpack/internal/viewer"
	"Cardpack/pkg/db"
	"Cardpack/pkg/log"
	"Cardpack/pkg/middlewares"
	"net/http"

	"github.com/gin-gonic/gin"
)

type routerDeps struct {
	cfg        *config.Config
	logger     log.Logger
	db         *db.RedisDB
	hub        *overlay.Hub
	sequencer  *sequencer.Sequencer
	session    *eventsub.Session // nil when Twitch ingestion is disabled
	auth       auth.Service
	authRepo   auth.Repository
	catalog    catalog.Service
	dropRates  droprate.Service
	viewers    viewer.Service
	collection collection.Service
	metrics    metrics.Service
}

func Router(router *gin.Engine, deps routerDeps) {
	router.Use(log.LoggerGinExtension(deps.logger))
	router.Use(gin.Recovery())
	router.Use(middlewares.CORSMiddleware(deps.cfg.CORSOrigin))
	router.Use(middlewares.CorrelationMiddleware())
	router.Use(middlewares.UniqueIDMiddleware(deps.logger))

	// This is the route to default path
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to Cardpack!")
	})
	router.GET("/api/health", healthHandler(deps))

	// Card images uploaded by the admin surface
	router.Static(admin.AssetsURLPrefix, deps.cfg.AssetsPath)

	overlay.APIHandlers(router, deps.hub, deps.sequencer, deps.logger)

	adminGroup := router.Group("/api/admin")
	adminGroup.Use(auth.AdminMiddleware(deps.logger, deps.authRepo, deps.cfg.AdminJWTSecret))
	{
		auth.APIHandlers(adminGroup, deps.auth, deps.logger)
		admin.APIHandlers(adminGroup, admin.Services{
			Catalog:    deps.catalog,
			DropRates:  deps.dropRates,
			Viewers:    deps.viewers,
			Collection: deps.collection,
			Metrics:    deps.metrics,
			Queue:      deps.sequencer,
			AssetsPath: deps.cfg.AssetsPath,
		}, deps.logger)
	}
}

// Reports the state of every moving part, 503 when redis is unreachable.
func healthHandler(deps routerDeps) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		status, redisStatus := http.StatusOK, "up"
		if pingerr := deps.db.Client().Ping(gctx).Err(); pingerr != nil {
			deps.logger.WithCtx(gctx).Error().Err(pingerr).Msg("Health check couldn't PING the redis-server.")
			status, redisStatus = http.StatusServiceUnavailable, "down"
		}
		eventsubState := "disabled"
		if deps.session != nil {
			eventsubState = deps.session.State().String()
		}
		gctx.JSON(status, gin.H{
			"version":   deps.cfg.Version,
			"redis":     redisStatus,
			"eventsub":  eventsubState,
			"sequencer": deps.sequencer.State(),
			"overlay":   deps.hub.Stats(),
		})
	}
}
