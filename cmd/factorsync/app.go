package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"factorsync/internal/classifier"
	"factorsync/internal/config"
	"factorsync/internal/feed"
	"factorsync/internal/logger"
	"factorsync/internal/port"
	"factorsync/internal/repository/postgres"
	"factorsync/internal/repository/sqlite"
	"factorsync/internal/service"
	s3storage "factorsync/internal/storage/s3"
)

// app holds the dependencies shared by every command.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *sqlx.DB
}

func newApp(configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	db, err := openDB(&cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &app{cfg: cfg, log: log, db: db}, nil
}

func openDB(cfg *config.DBConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.NewDB(cfg)
	case "sqlite":
		return sqlite.NewDB(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

func (a *app) close() {
	_ = a.db.Close()
	_ = a.log.Sync()
}

func (a *app) factorStore() port.FactorStore {
	return postgres.NewEmissionFactorRepo(a.db)
}

func (a *app) feedConfigService() service.FeedConfigService {
	return service.NewFeedConfigService(postgres.NewFeedConfigRepo(a.db), service.FeedDefaults{
		CSVURL:                a.cfg.Feed.URL,
		UpdateFrequencyMonths: a.cfg.Feed.UpdateFrequencyMonths,
		ActiveSectors:         a.cfg.Feed.ActiveSectors,
	})
}

func (a *app) runLock() port.RunLock {
	if a.cfg.DB.Driver == "postgres" {
		return postgres.NewRunLock(a.db)
	}
	return sqlite.NewRunLock(a.cfg.DB.SQLitePath)
}

func (a *app) updateService(ctx context.Context) (service.UpdateService, error) {
	rules, err := classifier.LoadRules(a.cfg.Rules.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	var archive port.ObjectStorage
	if a.cfg.Archive.Enabled {
		archive, err = s3storage.NewS3Client(ctx, &a.cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	downloader := feed.NewDownloader(a.cfg.Feed.Timeout, a.cfg.Feed.MaxBytes(), a.cfg.Feed.UserAgent, a.log)

	return service.NewUpdateService(
		a.feedConfigService(),
		downloader,
		classifier.New(rules),
		a.factorStore(),
		archive,
		a.runLock(),
		service.UpdateSettings{
			ParallelSectors: a.cfg.Pipeline.ParallelSectors,
			ArchiveEnabled:  a.cfg.Archive.Enabled,
			ArchivePrefix:   a.cfg.Archive.Prefix,
		},
		a.log,
	), nil
}
