// Package config loads the service configuration from defaults, an optional
// YAML file and ANIMEKUN_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
	"github.com/edumarques81/animekun-backend/internal/infra/store"
)

// EnvPrefix prefixes every environment override, e.g. ANIMEKUN_SERVER_PORT.
const EnvPrefix = "ANIMEKUN_"

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "ANIMEKUN_CONFIG"

// ErrNoConfigFile is returned by Load when an explicit path does not exist.
var ErrNoConfigFile = errors.New("config file not found")

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/animekun/config.yaml",
}

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" validate:"required"`
	AniList  AniListConfig  `koanf:"anilist" validate:"required"`
	Storage  StorageConfig  `koanf:"storage" validate:"required"`
	Calendar CalendarConfig `koanf:"calendar" validate:"required"`
	Sections SectionsConfig `koanf:"sections" validate:"required"`
	Logging  LoggingConfig  `koanf:"logging" validate:"required"`
}

// ServerConfig configures the HTTP and Socket.IO listener.
type ServerConfig struct {
	Port               int      `koanf:"port" validate:"min=1,max=65535"`
	StaticDir          string   `koanf:"static_dir"`
	RateLimitRPS       float64  `koanf:"rate_limit_rps" validate:"min=0"`
	RateLimitBurst     int      `koanf:"rate_limit_burst" validate:"min=0"`
	MaxExternalClients int      `koanf:"max_external_clients" validate:"min=0"`
	CORSOrigins        []string `koanf:"cors_origins"`
}

// AniListConfig configures the GraphQL client.
type AniListConfig struct {
	URL               string        `koanf:"url" validate:"required,url"`
	Timeout           time.Duration `koanf:"timeout" validate:"min=0"`
	RequestsPerMinute int           `koanf:"requests_per_minute" validate:"min=0"`
	BreakerFailures   uint32        `koanf:"breaker_failures"`
	BreakerTimeout    time.Duration `koanf:"breaker_timeout" validate:"min=0"`
}

// StorageConfig locates the durable and session stores.
type StorageConfig struct {
	FavoritesPath   string `koanf:"favorites_path" validate:"required"`
	CachePath       string `koanf:"cache_path"`
	CacheQuotaBytes int64  `koanf:"cache_quota_bytes" validate:"min=0"`
}

// CalendarConfig configures the weekly calendar loader.
type CalendarConfig struct {
	Timezone string `koanf:"timezone"`
	MaxPages int    `koanf:"max_pages" validate:"min=1,max=10"`
	PerPage  int    `koanf:"per_page" validate:"min=1,max=50"`
}

// SectionsConfig configures section page sizes and input debouncing.
type SectionsConfig struct {
	ItemsPerPage    int           `koanf:"items_per_page" validate:"min=1,max=50"`
	ItemsPerSection int           `koanf:"items_per_section" validate:"min=1,max=50"`
	SearchDebounce  time.Duration `koanf:"search_debounce" validate:"min=0"`

	// REST view sessions are dropped after SessionIdleTimeout without use,
	// and the least recently used goes once MaxSessions are open.
	SessionIdleTimeout time.Duration `koanf:"session_idle_timeout" validate:"min=0"`
	MaxSessions        int           `koanf:"max_sessions" validate:"min=0"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=console json"`
	File   string `koanf:"file"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               3002,
			RateLimitRPS:       20,
			RateLimitBurst:     40,
			MaxExternalClients: 20,
			CORSOrigins:        []string{"*"},
		},
		AniList: AniListConfig{
			URL:               anilist.DefaultURL,
			Timeout:           anilist.DefaultTimeout,
			RequestsPerMinute: anilist.DefaultRequestsPerMinute,
			BreakerFailures:   5,
			BreakerTimeout:    30 * time.Second,
		},
		Storage: StorageConfig{
			FavoritesPath:   store.DefaultFavoritesPath,
			CachePath:       store.DefaultCachePath,
			CacheQuotaBytes: 5 << 20,
		},
		Calendar: CalendarConfig{
			Timezone: "Local",
			MaxPages: 3,
			PerPage:  50,
		},
		Sections: SectionsConfig{
			ItemsPerPage:    20,
			ItemsPerSection: 15,
			SearchDebounce:  300 * time.Millisecond,

			SessionIdleTimeout: 30 * time.Minute,
			MaxSessions:        256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// ANIMEKUN_CONFIG and then DefaultConfigPaths are consulted.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoConfigFile, path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and the calendar timezone.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the calendar timezone. "" and "Local" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Calendar.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar.timezone: %w", err)
	}
	return loc, nil
}

// envTransformFunc maps ANIMEKUN_SERVER_RATE_LIMIT_RPS to
// server.rate_limit_rps: the first segment names the section.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + field
}

// splitList turns a comma-separated env value into a slice.
func splitList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
