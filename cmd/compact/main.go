// Command compact runs a single compaction pass against the configured
// backends and exits. Useful for cron-style scheduling or for draining a
// backlog without the full server.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/blob"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/cas"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/compactor"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/config"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/coord"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/store"
)

func main() {
	cfg := config.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	ctx := context.Background()

	var meta store.MetadataStore
	switch {
	case cfg.DatabaseURL != "":
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		meta = pg
	case cfg.SQLitePath != "":
		lite, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		meta = lite
	default:
		logger.Fatal().Msg("DATABASE_URL or SQLITE_PATH is required")
	}
	defer meta.Close()

	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required")
	}
	coords, err := coord.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer coords.Close()

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
	case cfg.BlobDir != "":
		fs, err := blob.NewFSStore(cfg.BlobDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("blob directory unusable")
		}
		blobs = fs
	default:
		logger.Fatal().Msg("S3_ENDPOINT or BLOB_DIR is required")
	}

	comp := compactor.New(meta, cas.NewContentStore(blobs, cfg.Prefix), blobs, coords, compactor.Config{
		Prefix:         cfg.Prefix,
		Tenant:         cfg.Tenant,
		TargetBytes:    cfg.TargetBytes,
		RecordEstimate: cfg.RecordEstimate,
		Grace:          cfg.CompactGrace,
		Interval:       cfg.CompactInterval,
	}, logger)

	if err := comp.RunOnce(ctx); err != nil {
		logger.Fatal().Err(err).Msg("compaction pass failed")
	}
	logger.Info().Msg("compaction pass complete")
}
