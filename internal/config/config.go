package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MemoryStorage keeps storefront storage in process memory.
const MemoryStorage = ":memory:"

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	JWTSecret   string `yaml:"jwt_secret"`

	// TokenTTL is the lifetime of a storefront session token.
	TokenTTL time.Duration `yaml:"token_ttl"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	// APIBaseURL is the tenant API the storefronts talk to.
	APIBaseURL  string        `yaml:"api_base_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// StoragePath is a SQLite file, or ":memory:".
	StoragePath string `yaml:"storage_path"`

	// TimeZone renders order times in the status view.
	TimeZone string `yaml:"time_zone"`

	Status   StatusConfig   `yaml:"status"`
	Sessions SessionsConfig `yaml:"sessions"`
}

// StatusConfig holds the order status timer periods.
type StatusConfig struct {
	PollInterval       time.Duration `yaml:"poll_interval"`
	ToggleInterval     time.Duration `yaml:"toggle_interval"`
	BackgroundInterval time.Duration `yaml:"background_interval"`
	BackgroundDelay    time.Duration `yaml:"background_delay"`
	SubmitTimeout      time.Duration `yaml:"submit_timeout"`
}

// SessionsConfig controls when unused storefronts are closed.
type SessionsConfig struct {
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	DisconnectGrace time.Duration `yaml:"disconnect_grace"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:        "8081",
		Environment: "production",
		JWTSecret:   "dev-secret-change-in-production",
		TokenTTL:    12 * time.Hour,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5500", // static pages served by a dev server
		},
		APIBaseURL:  "http://127.0.0.1:8000",
		HTTPTimeout: 15 * time.Second,
		StoragePath: MemoryStorage,
		TimeZone:    "America/Argentina/Buenos_Aires",
		Status: StatusConfig{
			PollInterval:       5 * time.Second,
			ToggleInterval:     5 * time.Second,
			BackgroundInterval: 30 * time.Second,
			BackgroundDelay:    1 * time.Second,
			SubmitTimeout:      15 * time.Second,
		},
		Sessions: SessionsConfig{
			IdleTimeout:     30 * time.Minute,
			DisconnectGrace: 2 * time.Minute,
			SweepInterval:   time.Minute,
		},
	}
}

// Load reads the YAML file at path (or $STOREFRONT_CONFIG when path is
// empty) over the defaults, then applies environment overrides. A missing
// path is not an error; a missing file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("STOREFRONT_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.APIBaseURL = getEnv("API_BASE_URL", cfg.APIBaseURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.StoragePath = getEnv("STORAGE_PATH", cfg.StoragePath)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: port is required")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("config: api_base_url is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: jwt_secret is required")
	}
	if c.StoragePath == "" {
		return fmt.Errorf("config: storage_path is required")
	}
	s := c.Status
	for name, d := range map[string]time.Duration{
		"status.poll_interval":       s.PollInterval,
		"status.toggle_interval":     s.ToggleInterval,
		"status.background_interval": s.BackgroundInterval,
		"sessions.idle_timeout":       c.Sessions.IdleTimeout,
		"sessions.disconnect_grace":   c.Sessions.DisconnectGrace,
		"sessions.sweep_interval":     c.Sessions.SweepInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	return nil
}

// IsDevelopment reports whether development logging should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Location loads TimeZone, falling back to UTC-3 when the tz database is
// unavailable.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.TimeZone); err == nil {
		return loc
	}
	return time.FixedZone("ART", -3*60*60)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
