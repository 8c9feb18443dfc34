package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/database"
	"github.com/fluentpath/detprep-backend/internal/handler"
	"github.com/fluentpath/detprep-backend/internal/history"
	"github.com/fluentpath/detprep-backend/internal/logger"
	"github.com/fluentpath/detprep-backend/internal/repository"
	"github.com/fluentpath/detprep-backend/internal/router"
	"github.com/fluentpath/detprep-backend/internal/service"
	"github.com/fluentpath/detprep-backend/internal/validator"
	"github.com/fluentpath/detprep-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting DET Prep Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	promptRepo := repository.NewPromptRepository(pool)
	resultRepo := repository.NewResultRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	hist := history.New(history.NewRedisKV(rdb), log)
	authService := service.NewAuthService(cfg, rdb, userRepo)
	promptService := service.NewPromptService(promptRepo, rdb, log)
	practiceService := service.NewPracticeService(promptService, hist, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Practice: handler.NewPracticeHandler(practiceService, promptService),
		History:  handler.NewHistoryHandler(hist, resultRepo),
		WS:       handler.NewWSHandler(practiceService, log, cfg.AllowedOrigins),
		System:   handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	resultWorker := worker.NewResultWorker(resultRepo, rdb, log)
	go resultWorker.Start(workerCtx)
	go practiceService.RunReaper(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load the active prompt of every exercise kind into Redis BEFORE
	// accepting traffic, so session starts never race a cold cache.
	if err := promptService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
