// Package app builds the profile-service object graph from a Config. The
// server and frsctl share it so both talk to the same stores the same way.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"frs/profile-service/internal/account"
	"frs/profile-service/internal/config"
	"frs/profile-service/internal/db"
	"frs/profile-service/internal/events"
	"frs/profile-service/internal/importer"
	"frs/profile-service/internal/media"
	"frs/profile-service/internal/metrics"
	"frs/profile-service/internal/profile"
)

// App holds the wired services and whatever must be closed on shutdown.
type App struct {
	Profiles *profile.Service
	Importer *importer.Importer
	Registry *prometheus.Registry

	closers []func()
}

// Open connects to the configured backends and wires the services.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, linker, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	pub, err := a.openEvents(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	aliases, err := importer.LoadAliases(cfg.FieldAliasesFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Profiles = profile.NewService(store, pub)
	a.Importer = importer.New(importer.Deps{
		Store:   store,
		Linker:  linker,
		Media:   media.NewFetcher(blobs, cfg.ImageFetchTimeout),
		Events:  pub,
		Metrics: metrics.NewImport(a.Registry),
		Aliases: aliases,
	})
	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (profile.Store, account.Linker, error) {
	if cfg.StoreDriver == "sqlite" {
		log.Printf("[profile-service] Opening SQLite %s…", cfg.SQLitePath)
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		a.closers = append(a.closers, func() { conn.Close() })
		return profile.NewSQLiteStore(conn), account.NewSQLiteLinker(conn), nil
	}

	log.Println("[profile-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	if err := db.EnsurePostgresSchema(ctx, pool); err != nil {
		return nil, nil, err
	}
	log.Println("[profile-service] PostgreSQL connected ✓")
	return profile.NewPostgresStore(pool), account.NewPostgresLinker(pool), nil
}

func (a *App) openEvents(ctx context.Context, cfg *config.Config) (events.Publisher, error) {
	if cfg.RedisURL == "" {
		log.Println("[profile-service] REDIS_URL not set — events are logged only")
		return events.LogPublisher{}, nil
	}
	log.Println("[profile-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.closers = append(a.closers, func() { rdb.Close() })
	log.Println("[profile-service] Redis connected ✓")
	return events.NewRedisPublisher(rdb), nil
}

func openBlobs(ctx context.Context, cfg *config.Config) (media.BlobStore, error) {
	if cfg.BlobBackend == "s3" {
		s, err := media.NewS3Store(ctx, media.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		return s, nil
	}
	return media.NewFileStore(cfg.BlobPath), nil
}
