package config

import (
	"fmt"
	"os"
	"time"

	"vigilcam/pkg/validation"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	AlertServer struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"alert_server"`

	Stream struct {
		URL string `yaml:"url"`
	} `yaml:"stream"`

	WHEP struct {
		ICEServers []struct {
			URLs       []string `yaml:"urls"`
			Username   string   `yaml:"username,omitempty"`
			Credential string   `yaml:"credential,omitempty"`
		} `yaml:"ice_servers"`
		GatherTimeout    time.Duration `yaml:"gather_timeout"`
		SignalingTimeout time.Duration `yaml:"signaling_timeout"`
	} `yaml:"whep"`

	Supervisor struct {
		RetryLimit        int           `yaml:"retry_limit"`
		ControlsHideDelay time.Duration `yaml:"controls_hide_delay"`
		Backoff           struct {
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
			Multiplier   float64       `yaml:"multiplier"`
			Jitter       bool          `yaml:"jitter"`
		} `yaml:"backoff"`
	} `yaml:"supervisor"`

	Alerts struct {
		DeviceSecret   string        `yaml:"device_secret"`
		MotionCooldown time.Duration `yaml:"motion_cooldown"`
		TypeCooldown   time.Duration `yaml:"type_cooldown"`
		DedupSize      int           `yaml:"dedup_size"`
	} `yaml:"alerts"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled    bool    `yaml:"enabled"`
		JaegerURL  string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret       string        `yaml:"jwt_secret"`
		AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
		RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"http"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Alert server
	if c.AlertServer.Address == "" {
		return fmt.Errorf("alert_server.address must not be empty")
	}
	if c.AlertServer.ReadTimeout <= 0 {
		return fmt.Errorf("alert_server.read_timeout must be > 0")
	}
	if c.AlertServer.WriteTimeout <= 0 {
		return fmt.Errorf("alert_server.write_timeout must be > 0")
	}
	if c.AlertServer.ShutdownTimeout <= 0 {
		return fmt.Errorf("alert_server.shutdown_timeout must be > 0")
	}

	// Stream
	if err := validation.ValidateStreamURL(c.Stream.URL); err != nil {
		return fmt.Errorf("stream.url: %w", err)
	}

	// WHEP
	if c.WHEP.GatherTimeout <= 0 {
		return fmt.Errorf("whep.gather_timeout must be > 0")
	}
	if c.WHEP.SignalingTimeout <= 0 {
		return fmt.Errorf("whep.signaling_timeout must be > 0")
	}

	// Supervisor
	if c.Supervisor.RetryLimit <= 0 {
		return fmt.Errorf("supervisor.retry_limit must be > 0")
	}
	if c.Supervisor.ControlsHideDelay <= 0 {
		return fmt.Errorf("supervisor.controls_hide_delay must be > 0")
	}
	if c.Supervisor.Backoff.InitialDelay <= 0 {
		return fmt.Errorf("supervisor.backoff.initial_delay must be > 0")
	}
	if c.Supervisor.Backoff.MaxDelay < c.Supervisor.Backoff.InitialDelay {
		return fmt.Errorf("supervisor.backoff.max_delay must be >= initial_delay")
	}
	if c.Supervisor.Backoff.Multiplier < 1.0 {
		return fmt.Errorf("supervisor.backoff.multiplier must be >= 1.0")
	}

	// Alerts
	if c.Alerts.MotionCooldown < 0 {
		return fmt.Errorf("alerts.motion_cooldown must be >= 0")
	}
	if c.Alerts.TypeCooldown < 0 {
		return fmt.Errorf("alerts.type_cooldown must be >= 0")
	}
	if c.Alerts.DedupSize <= 0 {
		return fmt.Errorf("alerts.dedup_size must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth.refresh_token_ttl must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Default values
	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.AlertServer.Address = ":8082"
	cfg.AlertServer.ReadTimeout = 30 * time.Second
	cfg.AlertServer.WriteTimeout = 30 * time.Second
	cfg.AlertServer.ShutdownTimeout = 30 * time.Second

	cfg.Stream.URL = "http://localhost:8889/cam/"

	cfg.WHEP.GatherTimeout = 2 * time.Second
	cfg.WHEP.SignalingTimeout = 10 * time.Second

	cfg.Supervisor.RetryLimit = 5
	cfg.Supervisor.ControlsHideDelay = 3 * time.Second
	cfg.Supervisor.Backoff.InitialDelay = 1 * time.Second
	cfg.Supervisor.Backoff.MaxDelay = 10 * time.Second
	cfg.Supervisor.Backoff.Multiplier = 2.0
	cfg.Supervisor.Backoff.Jitter = true

	cfg.Alerts.MotionCooldown = 30 * time.Second
	cfg.Alerts.TypeCooldown = 60 * time.Second
	cfg.Alerts.DedupSize = 128

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute
	cfg.Auth.RefreshTokenTTL = 7 * 24 * time.Hour // 7 days

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100

	return cfg
}

func (c *Config) applyEnvOverrides() {
	// Apply environment variable overrides
	if addr := os.Getenv("VIGILCAM_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if addr := os.Getenv("VIGILCAM_ALERT_SERVER_ADDRESS"); addr != "" {
		c.AlertServer.Address = addr
	}
	if u := os.Getenv("VIGILCAM_STREAM_URL"); u != "" {
		c.Stream.URL = u
	}
	if level := os.Getenv("VIGILCAM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("VIGILCAM_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if secret := os.Getenv("VIGILCAM_DEVICE_SECRET"); secret != "" {
		c.Alerts.DeviceSecret = secret
	}
	if addr := os.Getenv("VIGILCAM_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
}
