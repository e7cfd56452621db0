package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	BackendURL string
	Username   string
	Password   string
	Trackers   []string
	Interval   time.Duration
	Radius     float64
	Steps      int
	CenterLat  float64
	CenterLng  float64
	LogPath    string
	MaxRetries int
	RetryDelay time.Duration
}

var cfg AppConfig

// Init reads the simulator config. A missing file leaves the defaults.
func Init(path string) AppConfig {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TRACKDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("agent.backend_url", "http://127.0.0.1:9400")
	v.SetDefault("agent.username", "admin")
	v.SetDefault("agent.password", "admin123")
	v.SetDefault("agent.trackers", []string{})
	v.SetDefault("agent.interval", 2*time.Second)
	v.SetDefault("agent.radius", 1500.0)
	v.SetDefault("agent.steps", 120)
	v.SetDefault("agent.center.lat", 12.9716)
	v.SetDefault("agent.center.lng", 77.5946)
	v.SetDefault("agent.log_path", filepath.Join(os.TempDir(), "trackdash", "agent.log"))
	v.SetDefault("agent.max_retries", 10)
	v.SetDefault("agent.retry_delay", time.Second)
	_ = v.ReadInConfig()

	cfg = AppConfig{
		BackendURL: v.GetString("agent.backend_url"),
		Username:   v.GetString("agent.username"),
		Password:   v.GetString("agent.password"),
		Trackers:   v.GetStringSlice("agent.trackers"),
		Interval:   v.GetDuration("agent.interval"),
		Radius:     v.GetFloat64("agent.radius"),
		Steps:      v.GetInt("agent.steps"),
		CenterLat:  v.GetFloat64("agent.center.lat"),
		CenterLng:  v.GetFloat64("agent.center.lng"),
		LogPath:    v.GetString("agent.log_path"),
		MaxRetries: v.GetInt("agent.max_retries"),
		RetryDelay: v.GetDuration("agent.retry_delay"),
	}
	return cfg
}

func Get() AppConfig { return cfg }
