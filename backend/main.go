package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackdash/backend/global"
	"trackdash/backend/initialize"

	"github.com/gin-gonic/gin"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to backend YAML config")
		logLevel   = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	initialize.SetLevel(*logLevel)
	gin.SetMode(gin.ReleaseMode)

	app, err := initialize.Build(*configPath)
	if err != nil {
		global.Logger.Fatal().Err(err).Msg("build backend")
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Hub.Run(ctx); err != nil {
			global.Logger.Error().Err(err).Msg("redis relay stopped")
		}
	}()

	srv := &http.Server{Addr: app.Cfg.HTTP.Addr(), Handler: app.Router}
	go func() {
		global.Logger.Info().Str("addr", srv.Addr).Msg("backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			global.Logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		global.Logger.Warn().Err(err).Msg("shutdown")
	}
	global.Logger.Info().Msg("backend stopped")
}
