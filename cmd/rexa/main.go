package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rexa/newscrawler/internal/app"
	"github.com/rexa/newscrawler/internal/config"
	"github.com/rexa/newscrawler/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, nil)
	if err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.EnableMonitoring {
		go app.StartMonitoring(ctx, cfg.MonitoringPort, app.MonitorHandler(a.Metrics(), a.Budget()), log)
	}

	if _, err := a.Run(ctx); err != nil {
		log.Error("crawl failed", "error", err)
		a.Close()
		os.Exit(1)
	}
}
