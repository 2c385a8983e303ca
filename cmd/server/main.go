// Command server runs the carnaval-backend HTTP API.
//
// Boot order: env file, config, logging, tracing, database, object store,
// router, then an http.Server with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dale-app/carnaval-backend/internal/config"
	httpapi "github.com/dale-app/carnaval-backend/internal/http"
	"github.com/dale-app/carnaval-backend/internal/observability"
	"github.com/dale-app/carnaval-backend/internal/repo"
	"github.com/dale-app/carnaval-backend/internal/storage"
	"github.com/dale-app/carnaval-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	setupLogging(cfg)
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting carnaval-backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(c); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	store, localUploads, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("object store setup failed")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, store, cfg)
	if localUploads != "" {
		// Photos land on local disk without a bucket; serve them back.
		r.Static("/uploads", localUploads)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		c, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(c); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
	log.Info().Msg("stopped")
}

// setupLogging configures the global zerolog output and level.
func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty || sysutil.IsTruthy(os.Getenv("DEV")) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	sysutil.SetLogLevel(cfg.LogLevel)
}

// buildStore picks S3 when a bucket is configured and falls back to local
// disk otherwise. The second return value is the local uploads directory, or
// "" when S3 serves the photos.
func buildStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, string, error) {
	if cfg.S3.Bucket != "" {
		s, err := storage.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.BaseURL)
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("photos stored in s3")
		return s, "", nil
	}

	baseURL := sysutil.FirstNonEmpty(cfg.S3.BaseURL, cfg.PublicBaseURL+"/uploads")
	s, err := storage.NewFSStore(cfg.S3.LocalDir, baseURL)
	if err != nil {
		return nil, "", err
	}
	log.Info().Str("dir", cfg.S3.LocalDir).Msg("photos stored on local disk")
	return s, cfg.S3.LocalDir, nil
}
