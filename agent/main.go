package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"trackdash/agent/internal/config"
	"trackdash/agent/internal/connection"
	"trackdash/agent/internal/logger"
	"trackdash/agent/internal/service"

	"github.com/rs/zerolog"
)

func main() {
	var (
		cfgPath  = flag.String("config", "config/agent.yaml", "Path to configuration file")
		logLevel = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	cfg := config.Init(*cfgPath)
	if err := logger.Init(cfg.LogPath); err != nil {
		logger.Error("Cannot open log file:", err)
	}
	if lvl, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Agent will retry up to %d times with a base delay of %v...", cfg.MaxRetries, cfg.RetryDelay)
	mgr := connection.New(cfg.BackendURL, cfg.Username, cfg.Password, cfg.MaxRetries, cfg.RetryDelay)
	if err := mgr.Connect(ctx); err != nil {
		logger.Error("Failed to establish session:", err)
		return
	}

	routes, err := service.BuildRoutes(ctx, mgr, cfg)
	if err != nil {
		logger.Error("Cannot list trackers:", err)
		return
	}
	if len(routes) == 0 {
		logger.Warn("No trackers to simulate")
		return
	}
	logger.Infof("Simulating %d trackers every %v", len(routes), cfg.Interval)
	service.Run(ctx, mgr, routes, cfg.Interval)
	logger.Info("Shutdown signal received, exiting...")
}
