// The main file of Cardpack.

package main

import (
	"Cardpack/internal/auth"
	"Cardpack/internal/catalog"
	"Cardpack/internal/collection"
	"Cardpack/internal/config"
	"Cardpack/internal/droprate"
	"Cardpack/internal/errors"
	"Cardpack/internal/eventsub"
	"Cardpack/internal/metrics"
	"Cardpack/internal/overlay"
	"Cardpack/internal/packopening"
	"Cardpack/internal/sequencer"
	"Cardpack/internal/viewer"
	"Cardpack/pkg/cleanup"
	"Cardpack/pkg/db"
	"Cardpack/pkg/log"
	"Cardpack/pkg/validations"
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Indicates the current version of Cardpack.
var Version = "1.0.0"

func main() {
	issueToken := flag.String("issue-admin-token", "", "print an admin token for the given subject and exit")
	tokenTTL := flag.Duration("admin-token-ttl", 30*24*time.Hour, "lifetime of the token printed by -issue-admin-token")
	flag.Parse()

	cfg, cfgerr := config.Load("config/dev.env", ".env")
	logger := log.NewWithEnv(Version, envOf(cfg))
	if cfgerr != nil {
		logger.Fatal().Err(cfgerr).Msg("Cardpack configuration is invalid.")
	}
	logger.Info().Msg(fmt.Sprintf("Welcome to Cardpack: v%s", Version))
	logger.Info().Msg(fmt.Sprintf("Cardpack Environment: %s", cfg.Env))

	// This is the preferred mode used by gin server in DEV environment.
	if cfg.Env == "DEV" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sending a PING request to DB for connection status check.
	dbConnWrp, dberr := db.NewDbConnection(ctx, logger, db.Options{
		Addr:     cfg.Redis.Addr,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if dberr != nil {
		logger.Fatal().Err(dberr).Msg("Redis client couldn't be configured.")
	}
	if pingerr := dbConnWrp.CheckDbConnection(ctx, logger); pingerr != nil {
		logger.Fatal().Err(pingerr).Msg("Redis client couldn't PING the redis-server.")
	}
	validations.RegisterCustomValidations(ctx, logger)

	authRepo := auth.NewRepository(dbConnWrp)
	authService := auth.NewService(cfg.AdminJWTSecret, authRepo, logger)
	if *issueToken != "" {
		token, err := authService.IssueToken(ctx, *issueToken, *tokenTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Couldn't issue admin token.")
		}
		fmt.Println(token)
		return
	}

	// Data access collaborators.
	viewerService := viewer.NewService(viewer.NewRepository(dbConnWrp), logger)
	catalogService := catalog.NewService(catalog.NewRepository(dbConnWrp), logger)
	dropRateService := droprate.NewService(droprate.NewRepository(dbConnWrp), logger)
	collectionService := collection.NewService(collection.NewRepository(dbConnWrp), catalogService, logger)
	metricsService := metrics.NewService(metrics.NewRepository(dbConnWrp), logger)
	if err := dropRateService.SeedDefaults(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Couldn't seed default drop rates.")
	}

	// Pack opening pipeline.
	hub := overlay.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)
	opener := packopening.NewService(packopening.Dependencies{
		Viewers:   viewerService,
		Sets:      catalogService,
		Cards:     catalogService,
		DropRates: dropRateService,
		Ledger:    collectionService,
		Metrics:   metricsService,
	}, logger)
	seq := sequencer.New(opener, hub, cfg.AckTimeout, logger)

	var session *eventsub.Session
	if cfg.Twitch.Enabled {
		helix := eventsub.NewHelixClient(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret, cfg.Twitch.APIURL, cfg.Twitch.AuthURL, nil)
		session = eventsub.NewSession(eventsub.Options{
			URL:               cfg.Twitch.EventSubURL,
			ChannelID:         cfg.Twitch.ChannelID,
			RewardID:          cfg.Twitch.RewardID,
			DefaultSetID:      cfg.Twitch.DefaultSetID,
			ReconnectDelay:    cfg.Twitch.ReconnectDelay,
			ReconnectMaxDelay: cfg.Twitch.ReconnectMaxDelay,
			TokenMargin:       cfg.Twitch.TokenMargin,
		}, helix, viewerService, seq, logger)
		if err := session.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Couldn't start the Twitch EventSub session.")
		}
	} else {
		logger.Warn().Msg("Twitch ingestion disabled, openings can only be enqueued by the admin API.")
	}

	// Initializing the gin server.
	server := gin.New()
	Router(server, routerDeps{
		cfg:        cfg,
		logger:     logger,
		db:         dbConnWrp,
		hub:        hub,
		sequencer:  seq,
		session:    session,
		auth:       authService,
		authRepo:   authRepo,
		catalog:    catalogService,
		dropRates:  dropRateService,
		viewers:    viewerService,
		collection: collectionService,
		metrics:    metricsService,
	})

	// Running the server with defined addr and port.
	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: server,
	}

	// ListenAndServe is a blocking operation, putting it a goroutine
	go func() {
		logger.Info().Msgf("Cardpack listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Gin server stopped unexpectedly.")
		}
	}()

	// Graceful shutdown of Cardpack server triggered due to system interruptions.
	operations := map[string]cleanup.Operation{
		"Gin": func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
		"Sequencer": seq.Shutdown,
		"Overlay-hub": func(context.Context) error {
			stopHub()
			return nil
		},
		"Redis-server": func(ctx context.Context) error {
			return dbConnWrp.CloseDbConnection(ctx)
		},
	}
	if session != nil {
		operations["EventSub"] = session.Shutdown
	}
	wait := cleanup.GracefulShutdown(ctx, logger, 10*time.Second, operations)
	<-wait
}

// envOf tolerates a nil config so the logger exists before the config is known to be valid.
func envOf(cfg *config.Config) string {
	if cfg == nil {
		return "DEV"
	}
	return cfg.Env
}
