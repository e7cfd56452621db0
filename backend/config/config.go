package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type DB struct {
	Driver string
	Path   string
	Host   string
	Port   int
	User   string
	Pass   string
	Name   string
}

type HTTP struct {
	Host string
	Port int
}

func (h HTTP) Addr() string { return fmt.Sprintf("%s:%d", h.Host, h.Port) }

type Redis struct {
	Addr    string
	Channel string
}

// Simulation drives the fake device side of the command protocol.
type Simulation struct {
	AckDelay      time.Duration
	CompleteDelay time.Duration
	MediaBaseURL  string
}

type Config struct {
	HTTP  HTTP
	DB    DB
	Redis Redis
	JWT   struct {
		Secret string
		Issuer string
		ExpMin int
	}
	Admin struct {
		Username string
		Password string
	}
	Simulation Simulation
	SeedDemo   bool
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("backend.host", "127.0.0.1")
	v.SetDefault("backend.port", 9400)
	v.SetDefault("backend.db.driver", "sqlite")
	v.SetDefault("backend.db.path", "trackdash-backend.db")
	v.SetDefault("backend.db.host", "127.0.0.1")
	v.SetDefault("backend.db.port", 3306)
	v.SetDefault("backend.db.user", "root")
	v.SetDefault("backend.db.pass", "")
	v.SetDefault("backend.db.name", "trackdash")
	v.SetDefault("backend.redis.addr", "")
	v.SetDefault("backend.redis.channel", "trackdash:events")
	v.SetDefault("backend.admin.username", "admin")
	v.SetDefault("backend.admin.password", "admin123")
	v.SetDefault("backend.seed_demo", true)
	v.SetDefault("backend.simulation.ack_delay", 200*time.Millisecond)
	v.SetDefault("backend.simulation.complete_delay", time.Second)
	v.SetDefault("backend.simulation.media_base_url", "http://127.0.0.1:9400/media")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		HTTP: HTTP{Host: v.GetString("backend.host"), Port: v.GetInt("backend.port")},
		DB: DB{
			Driver: v.GetString("backend.db.driver"),
			Path:   v.GetString("backend.db.path"),
			Host:   v.GetString("backend.db.host"),
			Port:   v.GetInt("backend.db.port"),
			User:   v.GetString("backend.db.user"),
			Pass:   v.GetString("backend.db.pass"),
			Name:   v.GetString("backend.db.name"),
		},
		SeedDemo: v.GetBool("backend.seed_demo"),
		Redis:    Redis{Addr: v.GetString("backend.redis.addr"), Channel: v.GetString("backend.redis.channel")},
		Simulation: Simulation{
			AckDelay:      v.GetDuration("backend.simulation.ack_delay"),
			CompleteDelay: v.GetDuration("backend.simulation.complete_delay"),
			MediaBaseURL:  v.GetString("backend.simulation.media_base_url"),
		},
	}
	cfg.Admin.Username = v.GetString("backend.admin.username")
	cfg.Admin.Password = v.GetString("backend.admin.password")
	cfg.JWT.Secret = v.GetString("backend.jwt.secret")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "dev-secret"
	}
	cfg.JWT.Issuer = v.GetString("backend.jwt.issuer")
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "trackdash"
	}
	cfg.JWT.ExpMin = v.GetInt("backend.jwt.exp_min")
	if cfg.JWT.ExpMin <= 0 {
		cfg.JWT.ExpMin = 60
	}
	return cfg, nil
}
