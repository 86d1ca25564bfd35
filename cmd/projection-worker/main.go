package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"billdash/internal/cli"
	applog "billdash/internal/log"
	"billdash/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentRecorder)

	logger.Info("Starting projection-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	dashboards := services.NewDashboardService(repo)
	projections := services.NewProjectionService(repo, dashboards)
	recorder := services.NewProjectionRecorder(repo, projections)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Recording daily projection entries", "interval", cfg.RecorderInterval.String())
	if err := recorder.Run(ctx, cfg.RecorderInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recorder stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Recorder stopped gracefully")
}
