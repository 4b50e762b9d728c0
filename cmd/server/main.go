package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/api"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/blob"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/cas"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/compactor"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/config"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/coord"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/handlers"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/notify"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/reader"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/store"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/writer"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Metadata store
	var meta store.MetadataStore
	switch {
	case cfg.DatabaseURL != "":
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		meta = pg
		logger.Info().Msg("connected to PostgreSQL")
	case cfg.SQLitePath != "":
		lite, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		meta = lite
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened SQLite store")
	default:
		meta = store.NewMemoryStore()
		logger.Warn().Msg("using in-memory metadata store; data will not survive restart")
	}
	defer meta.Close()

	// Coordination store
	var coords coord.Store
	if cfg.RedisURL != "" {
		rs, err := coord.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer rs.Close()
		coords = rs
		logger.Info().Msg("connected to Redis")
	} else {
		coords = coord.NewMemoryStore()
		logger.Warn().Msg("using in-memory coordination store")
	}

	// Blob store
	var blobs blob.Store
	switch {
	case cfg.S3Endpoint != "":
		s3, err := blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("s3 connection failed")
		}
		blobs = s3
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("connected to S3")
	case cfg.BlobDir != "":
		fs, err := blob.NewFSStore(cfg.BlobDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("blob directory unusable")
		}
		blobs = fs
		logger.Info().Str("dir", cfg.BlobDir).Msg("using filesystem blob store")
	default:
		blobs = blob.NewMemoryStore()
		logger.Warn().Msg("using in-memory blob store")
	}

	// Write notifications
	var pub notify.Publisher
	if cfg.NATSURL != "" {
		np, err := notify.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("nats connection failed")
		}
		defer np.Close()
		pub = np
		logger.Info().Msg("connected to NATS")
	} else {
		pub = notify.NewLogPublisher(logger)
	}

	// Engine
	contents := cas.NewContentStore(blobs, cfg.Prefix)
	seq := writer.NewSequenceAllocator(coords)
	guard := writer.NewIdempotencyGuard(coords, cfg.IdempotencyTTL)
	writes := writer.New(seq, guard, contents, meta, pub, cfg.WriteTopic, logger)
	reads := reader.New(meta, contents, blobs, coords, cfg.ReadWorkers, logger)

	comp := compactor.New(meta, contents, blobs, coords, compactor.Config{
		Prefix:         cfg.Prefix,
		Tenant:         cfg.Tenant,
		TargetBytes:    cfg.TargetBytes,
		RecordEstimate: cfg.RecordEstimate,
		Grace:          cfg.CompactGrace,
		Interval:       cfg.CompactInterval,
	}, logger)

	compactCtx, stopCompactor := context.WithCancel(ctx)
	go comp.Run(compactCtx)

	// Create router
	h := handlers.NewHandler(writes, reads, meta, coords, logger)
	router := api.NewRouter(logger, h)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting chat storage server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	stopCompactor()

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
