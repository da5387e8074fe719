package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guardianai/pairing-server-go/internal/config"
	"github.com/guardianai/pairing-server-go/internal/database"
	"github.com/guardianai/pairing-server-go/internal/handler"
	"github.com/guardianai/pairing-server-go/internal/identity"
	"github.com/guardianai/pairing-server-go/internal/jobs"
	"github.com/guardianai/pairing-server-go/internal/middleware"
	"github.com/guardianai/pairing-server-go/internal/redis"
	"github.com/guardianai/pairing-server-go/internal/repository"
	"github.com/guardianai/pairing-server-go/internal/service"
	"github.com/guardianai/pairing-server-go/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	principalRepo := repository.NewPrincipalRepository(db.DB)
	tokenRepo := repository.NewPairingTokenRepository(db.DB)
	linkRepo := repository.NewDeviceLinkRepository(db)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	identityService := identity.NewService(principalRepo)
	pairingService := service.NewPairingService(
		tokenRepo, linkRepo, identityService, broker,
		cfg.PairingTTL(), config.MaxPairingTTL, config.MaxActiveTokensPerUser,
	)
	linkService := service.NewLinkService(linkRepo)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	authMiddleware := middleware.NewAuthMiddleware(principalRepo)
	redeemRateLimit := middleware.NewIPRateLimitMiddleware(
		rateLimiter, cfg.RedeemRatePerMin, time.Minute, "redeem",
	)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	pairingHandler := handler.NewPairingHandler(pairingService)
	linkHandler := handler.NewLinkHandler(linkService)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/pairing", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Use(middleware.RequireParent)
			r.Post("/tokens", pairingHandler.IssueToken)
			r.Get("/tokens", pairingHandler.ListTokens)
			r.Get("/events", eventsHandler.ServeHTTP)
		})
		r.Group(func(r chi.Router) {
			r.Use(redeemRateLimit.Handler)
			r.Use(authMiddleware.OptionalHandler)
			r.Post("/redeem", pairingHandler.Redeem)
		})
	})

	r.Route("/v1/links", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(middleware.RequireParent)
		r.Mount("/", linkHandler.Routes())
	})

	reaper := jobs.NewReaperJob(tokenRepo, principalRepo, config.ReaperInterval)
	reaper.Start()
	defer reaper.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
