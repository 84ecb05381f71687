// Package app wires configuration, storage and the recommendation pipeline
// together for the server, the Lambda functions and the CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"course-eligibility-engine/internal/config"
	"course-eligibility-engine/internal/services/cache"
	"course-eligibility-engine/internal/services/catalog"
	"course-eligibility-engine/internal/services/database"
	"course-eligibility-engine/internal/services/eligibility"
	"course-eligibility-engine/internal/services/matcher"
	s3service "course-eligibility-engine/internal/services/s3"
	"course-eligibility-engine/internal/services/ses"
	"course-eligibility-engine/internal/utils"
)

// App holds every long-lived dependency. DB, Cache, S3 and Mailer are nil
// when their settings are absent or the backend is unreachable.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   *catalog.Store
	Matcher *matcher.Service

	DB     *database.DB
	Cache  *cache.Cache
	S3     *s3service.Service
	Mailer *ses.Service
}

// New connects the optional backends, builds the catalog source and loads
// the first snapshot. Only the backend that serves the catalog is required.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = utils.Component(logger, "app")

	policy, err := eligibility.NewPolicy(cfg.CreditGrade, cfg.DistinctionGrade, cfg.MeritFairBand)
	if err != nil {
		return nil, fmt.Errorf("invalid eligibility policy: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}

	if cfg.DatabaseConfigured() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			if cfg.CatalogSource == config.CatalogSourcePostgres {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}
			logger.Warn("Database unavailable, runs will not be recorded", zap.Error(err))
		} else {
			a.DB = db
		}
	}

	if cfg.S3Bucket != "" {
		svc, err := s3service.NewService(ctx, cfg)
		if err != nil {
			if cfg.CatalogSource == config.CatalogSourceS3 {
				a.Close()
				return nil, err
			}
			logger.Warn("S3 unavailable", zap.Error(err))
		} else {
			a.S3 = svc
		}
	}

	if cfg.RedisURL != "" {
		c, err := cache.New(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logger.Warn("Cache unavailable, results will not be cached", zap.Error(err))
		} else {
			a.Cache = c
		}
	}

	if cfg.SESSenderEmail != "" {
		mailer, err := ses.NewService(ctx, cfg)
		if err != nil {
			logger.Warn("Email unavailable", zap.Error(err))
		} else {
			a.Mailer = mailer
		}
	}

	source, err := a.source()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = catalog.NewStore(source, cfg.DefaultLanguage, logger)
	a.Matcher = matcher.NewService(a.Store, policy, logger, a.options()...)

	if _, err := a.Store.Reload(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load catalog from %s: %w", source.Name(), err)
	}

	logger.Info("Application ready",
		zap.String("catalog_source", source.Name()),
		zap.Bool("database", a.DB != nil),
		zap.Bool("cache", a.Cache != nil),
		zap.Bool("s3", a.S3 != nil),
		zap.Bool("email", a.Mailer != nil),
	)

	return a, nil
}

func (a *App) source() (catalog.Source, error) {
	switch a.Config.CatalogSource {
	case config.CatalogSourceS3:
		return catalog.NewS3Source(a.S3, a.Config.S3CatalogPrefix), nil
	case config.CatalogSourcePostgres:
		return catalog.NewPostgresSource(database.NewCatalogRepository(a.DB)), nil
	case config.CatalogSourceFile:
		return catalog.NewFileSource(a.Config.DataDir), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", a.Config.CatalogSource)
	}
}

func (a *App) options() []matcher.Option {
	var opts []matcher.Option
	if a.DB != nil {
		opts = append(opts, matcher.WithRunRecorder(database.NewResultRepository(a.DB)))
	}
	if a.Cache != nil {
		opts = append(opts, matcher.WithCache(a.Cache, cache.Key))
	}
	if a.Mailer != nil {
		opts = append(opts, matcher.WithMailer(a.Mailer))
	}
	return opts
}

// Results returns the run repository, or nil without a database.
func (a *App) Results() *database.ResultRepository {
	if a.DB == nil {
		return nil
	}
	return database.NewResultRepository(a.DB)
}

// Close releases backend connections.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
}
