package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/routelink-api/api/swagger"
	"github.com/noah-isme/routelink-api/internal/app"
	"github.com/noah-isme/routelink-api/internal/handler"
	"github.com/noah-isme/routelink-api/internal/middleware"
	"github.com/noah-isme/routelink-api/pkg/config"
	"github.com/noah-isme/routelink-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/routelink-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/routelink-api/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

// @title RouteLink API
// @version 1.0.0
// @description Student travel scheduling: routes, travelers and the calendar that joins them.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to start", "error", err)
	}
	defer a.Close()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if a.Metrics != nil {
		r.Use(middleware.Metrics(a.Metrics))
	}

	ops := handler.NewMetricsHandler(a.Metrics, a.DB)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", ops.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:     handler.NewAuthHandler(a.Auth),
		Routes:   handler.NewRouteHandler(a.Routes),
		Links:    handler.NewLinkHandler(a.Links),
		Calendar: handler.NewCalendarHandler(a.Scheduler, a.Exports),
	}, a.Auth)
	r.NoRoute(handler.NotFound)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "db_driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
