package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type SelectionConfig struct {
	Backend      string // file | redis
	Path         string
	PollInterval time.Duration
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	RedisKey     string
}

type AppConfig struct {
	APIURL     string
	WSURL      string
	ClientType string
	Username   string
	Password   string

	TokenPath string
	LogPath   string
	LogLevel  string
	DBDriver  string
	DBPath    string

	Selection SelectionConfig

	CommandTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	RatePerSec      float64
	RateBurst       int
	HistoryCacheTTL time.Duration
	RequestTimeout  time.Duration

	PlaybackStep time.Duration
}

var cfg AppConfig

func dataDir() string { return filepath.Join(os.TempDir(), "trackdash") }

// Init reads path (YAML) on top of the defaults. A missing file is not an error.
func Init(path string) AppConfig {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("TRACKDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("console.api_url", "http://127.0.0.1:9400")
	v.SetDefault("console.ws_url", "ws://127.0.0.1:9400/ws")
	v.SetDefault("console.client_type", "web")
	v.SetDefault("console.token_path", filepath.Join(dataDir(), "session.token"))
	v.SetDefault("console.log_level", "info")
	v.SetDefault("console.db.driver", "sqlite")
	v.SetDefault("console.db.path", filepath.Join(dataDir(), "cache.db"))
	v.SetDefault("console.selection.backend", "file")
	v.SetDefault("console.selection.path", filepath.Join(dataDir(), "selected_tracker"))
	v.SetDefault("console.selection.poll_interval", 500*time.Millisecond)
	v.SetDefault("console.selection.redis.addr", "127.0.0.1:6379")
	v.SetDefault("console.selection.redis.key", "trackdash:selected_tracker")
	v.SetDefault("console.command.timeout", 2*time.Minute)
	v.SetDefault("console.channel.max_retries", 10)
	v.SetDefault("console.channel.retry_delay", time.Second)
	v.SetDefault("console.api.rate_per_sec", 10.0)
	v.SetDefault("console.api.burst", 20)
	v.SetDefault("console.api.history_cache_ttl", time.Minute)
	v.SetDefault("console.api.timeout", 15*time.Second)
	v.SetDefault("console.playback.step", time.Second)
	if path != "" {
		_ = v.ReadInConfig()
	}

	cfg = AppConfig{
		APIURL:     v.GetString("console.api_url"),
		WSURL:      v.GetString("console.ws_url"),
		ClientType: v.GetString("console.client_type"),
		Username:   v.GetString("console.username"),
		Password:   v.GetString("console.password"),
		TokenPath:  v.GetString("console.token_path"),
		LogPath:    v.GetString("console.log_path"),
		LogLevel:   v.GetString("console.log_level"),
		DBDriver:   v.GetString("console.db.driver"),
		DBPath:     v.GetString("console.db.path"),
		Selection: SelectionConfig{
			Backend:      v.GetString("console.selection.backend"),
			Path:         v.GetString("console.selection.path"),
			PollInterval: v.GetDuration("console.selection.poll_interval"),
			RedisAddr:    v.GetString("console.selection.redis.addr"),
			RedisPass:    v.GetString("console.selection.redis.password"),
			RedisDB:      v.GetInt("console.selection.redis.db"),
			RedisKey:     v.GetString("console.selection.redis.key"),
		},
		CommandTimeout:  v.GetDuration("console.command.timeout"),
		MaxRetries:      v.GetInt("console.channel.max_retries"),
		RetryDelay:      v.GetDuration("console.channel.retry_delay"),
		RatePerSec:      v.GetFloat64("console.api.rate_per_sec"),
		RateBurst:       v.GetInt("console.api.burst"),
		HistoryCacheTTL: v.GetDuration("console.api.history_cache_ttl"),
		RequestTimeout:  v.GetDuration("console.api.timeout"),
		PlaybackStep:    v.GetDuration("console.playback.step"),
	}
	if cfg.Selection.PollInterval <= 0 {
		cfg.Selection.PollInterval = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 10
	}
	return cfg
}

func Get() AppConfig { return cfg }

func TokenFilePath() string {
	if cfg.TokenPath == "" {
		return filepath.Join(dataDir(), "session.token")
	}
	return cfg.TokenPath
}
