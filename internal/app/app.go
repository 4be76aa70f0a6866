// Package app assembles the stores and services shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/routelink-api/internal/repository"
	"github.com/noah-isme/routelink-api/internal/service"
	"github.com/noah-isme/routelink-api/internal/validation"
	"github.com/noah-isme/routelink-api/pkg/cache"
	"github.com/noah-isme/routelink-api/pkg/config"
	"github.com/noah-isme/routelink-api/pkg/database"
	"github.com/noah-isme/routelink-api/pkg/events"
	"github.com/noah-isme/routelink-api/pkg/storage"
)

// App holds long-lived resources. Close releases them.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
	Bus    *events.Bus

	Metrics   *service.MetricsService
	Cache     *service.CacheService
	Auth      *service.AuthService
	Routes    *service.RouteService
	Links     *service.LinkService
	Holidays  *service.HolidayService
	Scheduler *service.SchedulerService
	Exports   *service.ExportService
}

// New opens the database, applies migrations, connects Redis when enabled and
// wires every service onto a shared event bus.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DB: db}

	a.Redis, err = cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, calendar reads will not be cached", zap.Error(err))
	}

	a.Bus = events.NewBus(logger.Named("events"))
	if cfg.Metrics.Enabled {
		a.Metrics = service.NewMetricsService()
		a.Metrics.SubscribeEvents(a.Bus)
	}

	cacheRepo := repository.NewCacheRepository(a.Redis, logger)
	a.Cache = service.NewCacheService(cacheRepo, a.Metrics, cfg.Calendar.CacheTTL, logger, a.Redis != nil)
	a.Cache.SubscribeInvalidation(a.Bus)

	validate := validation.New()
	a.Auth = service.NewAuthService(repository.NewUserRepository(db), validate, logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "routelink",
		EmailDomain:       cfg.Identity.EmailDomain,
	})
	a.Routes = service.NewRouteService(repository.NewRouteRepository(db), validate, a.Bus, logger)
	a.Links = service.NewLinkService(repository.NewLinkRepository(db), validate, a.Bus, logger)
	a.Holidays = service.NewHolidayService(cfg.Calendar.HolidaySeed)
	a.Scheduler = service.NewSchedulerService(service.SchedulerServiceParams{
		Calendar: repository.NewCalendarRepository(db),
		Routes:   a.Routes,
		Links:    a.Links,
		Holidays: a.Holidays,
		Cache:    a.Cache,
		Metrics:  a.Metrics,
		Bus:      a.Bus,
		Logger:   logger,
		Config: service.SchedulerConfig{
			CacheTTL:     cfg.Calendar.CacheTTL,
			SummaryLimit: cfg.Calendar.SummaryLimit,
		},
	})

	files, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Exports = service.NewExportService(a.Scheduler, files, logger)

	return a, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("close database", zap.Error(err))
		}
	}
}
