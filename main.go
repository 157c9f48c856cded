package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kestrelhealth/labrecords-api/config"
	"github.com/kestrelhealth/labrecords-api/data"
	"github.com/kestrelhealth/labrecords-api/handlers"
	"github.com/kestrelhealth/labrecords-api/health"
	"github.com/kestrelhealth/labrecords-api/logging"
	"github.com/kestrelhealth/labrecords-api/scheduler"
	"github.com/kestrelhealth/labrecords-api/server"
	"github.com/kestrelhealth/labrecords-api/validation"
)

func main() {
	// .env is optional, environment variables may come from the host
	if err := godotenv.Load(); err != nil {
		logging.Info("No .env file found, using host environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Configuration error", "error", err)
		os.Exit(1)
	}

	logging.InitLoggerWithConfig("logs", cfg)
	logging.Info("Starting lab records API", "env", cfg.Env, "port", cfg.Port)

	container := data.NewDataContainer()
	container.SetServerStartTime(time.Now())

	// Initial directory load plus scheduled reloads
	sched := scheduler.NewScheduler(container, cfg.LabDirectoryPath, cfg.DirectoryRefreshHours)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	handler := handlers.NewHTTPHandler(
		container,
		validation.NewDataValidator(),
		health.NewHealthChecker(container, cfg.DirectoryRefreshHours),
		cfg.SimhashNearThreshold,
	)

	srv := server.NewServer(cfg, handler)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown error", "error", err)
		os.Exit(1)
	}
}
