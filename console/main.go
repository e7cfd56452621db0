package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"trackdash/console/internal/api"
	"trackdash/console/internal/config"
	"trackdash/console/internal/logger"
	"trackdash/console/internal/service"
	"trackdash/console/internal/ui"
)

func main() {
	var (
		cfgPath  = flag.String("config", "config/console.yaml", "Path to configuration file")
		logLevel = flag.String("log-level", "", "Override the configured log level")
	)
	flag.Parse()

	cfg := config.Init(*cfgPath)
	logPath := cfg.LogPath
	if logPath == "" {
		// stdout belongs to the terminal UI
		logPath = filepath.Join(filepath.Dir(cfg.DBPath), "console.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err == nil {
		_ = logger.Init(logPath)
	}
	if *logLevel != "" {
		logger.SetLevel(*logLevel)
	} else {
		logger.SetLevel(cfg.LogLevel)
	}

	app, err := service.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Cannot start console:", err)
		os.Exit(1)
	}
	defer app.Close()

	needLogin := false
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	err = app.Authenticate(ctx)
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, service.ErrCredentialsRequired), errors.Is(err, api.ErrUnauthorized):
		logger.Warnf("Login required: %v", err)
		needLogin = true
	default:
		logger.Errorf("Authentication failed: %v", err)
		needLogin = true
	}

	p := tea.NewProgram(ui.NewRootModel(app, needLogin), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Errorf("UI exited: %v", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	logger.Info("Console shutting down")
}
