package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"trackdash/console/internal/api"
	"trackdash/console/internal/auth"
	"trackdash/console/internal/command"
	"trackdash/console/internal/config"
	"trackdash/console/internal/connection"
	"trackdash/console/internal/db"
	"trackdash/console/internal/live"
	"trackdash/console/internal/logger"
	"trackdash/console/internal/notification"
	"trackdash/console/internal/playback"
	"trackdash/console/internal/selection"
	"trackdash/console/internal/state"
	"trackdash/console/internal/tracker"
)

var ErrCredentialsRequired = errors.New("no valid session token and no credentials configured")

// App wires the console components around one shared channel.
type App struct {
	Cfg           config.AppConfig
	API           *api.Client
	Channel       *connection.Manager
	Store         *tracker.Store
	Selection     selection.Storage
	Live          *live.Synchronizer
	Notifications *notification.Reconciler
	Playback      *playback.Player

	rdb   *redis.Client
	mu    sync.Mutex
	stops []func()
}

func New(cfg config.AppConfig) (*App, error) {
	if _, err := db.Init(cfg.DBDriver, cfg.DBPath); err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	a := &App{Cfg: cfg}
	switch strings.ToLower(cfg.Selection.Backend) {
	case "redis":
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Selection.RedisAddr,
			Password: cfg.Selection.RedisPass,
			DB:       cfg.Selection.RedisDB,
		})
		a.Selection = selection.NewRedisStore(a.rdb, cfg.Selection.RedisKey)
	case "", "file":
		a.Selection = selection.NewFileStore(cfg.Selection.Path)
	default:
		return nil, fmt.Errorf("unsupported selection backend %q", cfg.Selection.Backend)
	}

	a.API = api.New(cfg.APIURL, auth.GetCurrentToken,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithRateLimit(cfg.RatePerSec, cfg.RateBurst),
		api.WithHistoryCache(cfg.HistoryCacheTTL),
	)
	a.Channel = connection.New(cfg.WSURL, auth.GetCurrentToken(), cfg.ClientType,
		connection.WithRetry(cfg.MaxRetries, cfg.RetryDelay))
	a.Store = tracker.NewStore(a.Selection)
	a.Live = live.New(a.Channel, a.API, a.Store)
	a.Notifications = notification.NewReconciler(a.API)
	a.Playback = playback.New(a.API, cfg.PlaybackStep)
	return a, nil
}

func (a *App) setToken(token string) {
	auth.SetCurrentToken(token)
	state.SetToken(token)
	a.Channel.SetToken(token)
	if c, err := auth.ParseClaims(token); err == nil {
		state.SetUserID(c.UserID)
	}
}

// Login exchanges credentials for a token and stores it.
func (a *App) Login(ctx context.Context, username, password string) error {
	logger.Infof("Logging in to %s as %s", a.Cfg.APIURL, username)
	token, err := a.API.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := auth.SaveToken(token); err != nil {
		logger.Warnf("Cannot persist session token: %v", err)
	}
	a.setToken(token)
	return nil
}

// Authenticate reuses a stored, unexpired token or logs in with the
// configured credentials.
func (a *App) Authenticate(ctx context.Context) error {
	if tok, err := auth.LoadToken(); err == nil && !auth.TokenExpired(tok) {
		a.setToken(tok)
		return nil
	}
	if a.Cfg.Username == "" {
		return ErrCredentialsRequired
	}
	return a.Login(ctx, a.Cfg.Username, a.Cfg.Password)
}

// LoadTrackers fetches the collection, restoring the persisted selection.
// When the server is unreachable the cached list seeds the store.
func (a *App) LoadTrackers(ctx context.Context) error {
	if saved, err := a.Selection.Load(); err == nil && saved != "" {
		a.Store.Adopt(saved)
	}
	raw, err := a.API.Trackers(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = auth.ClearToken()
			return err
		}
		n, cerr := SeedFromCache(a.Store)
		if cerr != nil {
			logger.Warnf("Reading tracker cache failed: %v", cerr)
		} else if n > 0 {
			logger.Warnf("Trackers unavailable (%v), showing %d cached", err, n)
		}
		a.Store.SetError(err)
		return fmt.Errorf("load trackers: %w", err)
	}
	if err := a.Store.LoadJSON(raw); err != nil {
		a.Store.SetError(err)
		return err
	}
	if err := CacheTrackers(a.Store.List()); err != nil {
		logger.Warnf("Caching trackers failed: %v", err)
	}
	return nil
}

// Start connects the live panel, the notification feed and the selection
// watcher. Channel failures are surfaced through the store, not returned.
func (a *App) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	if err := a.Live.Start(ctx); err != nil {
		logger.Errorf("Live channel unavailable: %v", err)
	}
	detach := a.Notifications.Attach(a.Channel)
	follow := a.Live.Follow(ctx, a.Store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = selection.NewWatcher(a.Selection, a.Store, a.Cfg.Selection.PollInterval).Run(ctx)
	}()
	go func() {
		if err := a.Notifications.FetchAll(ctx); err != nil {
			a.Store.SetError(err)
		}
	}()

	a.mu.Lock()
	a.stops = append(a.stops, func() {
		follow()
		detach()
		cancel()
		<-done
	})
	a.mu.Unlock()
}

// Commands returns a command controller for deviceID sharing the app channel.
func (a *App) Commands(deviceID string) *command.Controller {
	return command.New(a.Channel, a.API, deviceID, command.WithTimeout(a.Cfg.CommandTimeout))
}

func (a *App) Close() {
	a.mu.Lock()
	stops := a.stops
	a.stops = nil
	a.mu.Unlock()
	for i := len(stops) - 1; i >= 0; i-- {
		stops[i]()
	}
	a.Playback.Pause()
	a.Live.Close()
	_ = a.Channel.Close()
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}
