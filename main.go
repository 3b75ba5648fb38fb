package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/client-geomap/app/config"
	"github.com/client-geomap/app/container"
	"github.com/client-geomap/app/controllers"
	"github.com/client-geomap/routes"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("Cannot load config: ", err)
	}

	// 2. Logger
	logger, err := config.NewLogger(cfg.App.Env)
	if err != nil {
		log.Fatal("Cannot initialize logger: ", err)
	}
	defer logger.Sync()

	logger.Info("Starting Client Geomap Service", zap.String("env", cfg.App.Env))

	// 3. Components
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Error closing components", zap.Error(err))
		}
	}()

	// 4. Controllers and router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.SetupAllRoutes(router, routes.Controllers{
		Clients: controllers.NewClientController(app.Resolution, app.Hub, app.Search, app.Insights, logger),
		Geocode: controllers.NewGeocodeController(app.Cache, app.Resolver, logger),
		Admin:   controllers.NewAdminController(app.Cache, app.Resolution, app.Hub, app.Gemini.Available(), logger),
	})

	// 5. First load
	if app.Resolution.SourceURL() != "" {
		app.Resolution.Trigger("")
	} else {
		logger.Warn("No record source configured, waiting for PUT /v1/source")
	}

	// 6. Server
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
