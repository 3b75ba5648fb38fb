// Command worker reloads the client list on a fixed interval and logs every
// snapshot it produces. It shares its cache with the API server when both
// use a networked cache driver.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/client-geomap/app/config"
	"github.com/client-geomap/app/container"
	"github.com/client-geomap/app/models"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("Cannot load config: ", err)
	}

	logger, err := config.NewLogger(cfg.App.Env)
	if err != nil {
		log.Fatal("Cannot initialize logger: ", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer app.Close()

	if app.Resolution.SourceURL() == "" {
		logger.Fatal("Worker needs source.url")
	}

	snapshots, cancel := app.Hub.Subscribe()
	defer cancel()

	logger.Info("Worker started", zap.Duration("interval", cfg.Worker.Interval))

	run(ctx, app, snapshots, logger)

	logger.Info("Worker exited")
}

const defaultInterval = 10 * time.Minute

func run(ctx context.Context, app *container.Container, snapshots <-chan models.Snapshot, logger *zap.Logger) {
	interval := app.Config.Worker.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	app.Resolution.Trigger("")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !app.Resolution.Trigger("") {
				logger.Info("Previous cycle still running, skipping tick")
			}
		case snap := <-snapshots:
			logger.Info("Snapshot",
				zap.String("cycle_id", snap.CycleID),
				zap.String("phase", string(snap.Phase)),
				zap.Int("records", len(snap.Records)),
				zap.Int("located", snap.Located()))
		}
	}
}
