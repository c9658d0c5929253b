package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/platform"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/router"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
	"github.com/stemsi/exstem-proctor/internal/worker"
)

const shutdownReason = "Server shutting down"

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("platform", cfg.PlatformBaseURL).
		Bool("archive", cfg.ArchiveEnabled()).
		Msg("Starting ExStem Proctor")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Connect to PostgreSQL (optional archive) ──────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	var archive service.ResultArchive
	if pool != nil {
		defer pool.Close()
		archive = repository.NewResultRepository(pool)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	platformClient := platform.NewClient(cfg.PlatformBaseURL, cfg.PlatformTimeout, log)
	authService := service.NewAuthService(cfg)
	resultService := service.NewResultService(rdb, platformClient, archive, cfg.ResultCacheTTL, log)
	monitorService := service.NewMonitorService(rdb, log)
	sessionService := service.NewSessionService(platformClient, platformClient, resultService, service.SessionSettings{
		NavigateDelay:       cfg.NavigateDelay,
		MaxOverrideAttempts: cfg.MaxOverrideAttempts,
		LoadTimeout:         cfg.PlatformTimeout,
	}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Health:  handler.NewHealthHandler(rdb, pool, sessionService),
		Session: handler.NewSessionHandler(sessionService, log),
		Result:  handler.NewResultHandler(resultService, log),
		Monitor: handler.NewMonitorHandler(sessionService, monitorService, log),
		WS:      handler.NewWSHandler(sessionService, monitorService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	syncWorker := worker.NewResultSyncWorker(resultService, rdb, log)

	workers.Add(3)
	go func() { defer workers.Done(); monitorService.Run(workerCtx) }()
	go func() { defer workers.Done(); syncWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); limiter.Run(workerCtx) }()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, limiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. End live sessions; each compiles and persists its result before closing.
	sessionCtx, sessionCancel := context.WithTimeout(context.Background(),
		cfg.NavigateDelay+proctor.DefaultPersistTimeout+2*time.Second)
	defer sessionCancel()

	if err := sessionService.Shutdown(sessionCtx, shutdownReason); err != nil {
		log.Error().Err(err).Int("sessions", sessionService.Count()).Msg("Sessions did not close in time")
	}

	// 3. Stop background workers.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
