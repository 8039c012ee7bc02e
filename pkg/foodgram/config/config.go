// Package config loads server settings from defaults, an optional YAML
// file, an optional .env file and the process environment, in that order
// of increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the YAML config file location.
const PathEnvVar = "FOODGRAM_CONFIG"

// DefaultPaths are searched in order when PathEnvVar is unset.
var DefaultPaths = []string{"config.yaml", "config.yml"}

// DevJWTSecret is only acceptable with the sqlite driver.
const DevJWTSecret = "foodgram-dev-secret-change-in-production"

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Auth       AuthConfig       `koanf:"auth"`
	Media      MediaConfig      `koanf:"media"`
	Pagination PaginationConfig `koanf:"pagination"`
	Logging    LoggingConfig    `koanf:"logging"`
	PDF        PDFConfig        `koanf:"pdf"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	TrustedProxies  []string      `koanf:"trusted_proxies"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver   string `koanf:"driver"`
	DSN      string `koanf:"dsn"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
}

type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
	LoginRate  float64       `koanf:"login_rate"`
	LoginBurst int           `koanf:"login_burst"`
}

type MediaConfig struct {
	Root string `koanf:"root"`
	URL  string `koanf:"url"`
}

type PaginationConfig struct {
	PageSize int `koanf:"page_size"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type PDFConfig struct {
	FontPath string `koanf:"font_path"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			CORSOrigins:     []string{"http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Name:   "foodgram",
			User:   "foodgram",
			Host:   "localhost",
			Port:   "5432",
		},
		Auth: AuthConfig{
			JWTSecret:  DevJWTSecret,
			TokenTTL:   24 * time.Hour,
			LoginRate:  1,
			LoginBurst: 10,
		},
		Media: MediaConfig{
			Root: "media",
			URL:  "/media/",
		},
		Pagination: PaginationConfig{PageSize: 6},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envKeys maps environment variable names to config keys.
var envKeys = map[string]string{
	"PORT":              "server.port",
	"CORS_ORIGINS":      "server.cors_origins",
	"SHUTDOWN_TIMEOUT":  "server.shutdown_timeout",
	"TRUSTED_PROXIES":   "server.trusted_proxies",
	"DB_DRIVER":         "database.driver",
	"DATABASE_DSN":      "database.dsn",
	"POSTGRES_DB":       "database.name",
	"POSTGRES_USER":     "database.user",
	"POSTGRES_PASSWORD": "database.password",
	"DB_HOST":           "database.host",
	"DB_PORT":           "database.port",
	"JWT_SECRET":        "auth.jwt_secret",
	"JWT_TTL":           "auth.token_ttl",
	"LOGIN_RATE":        "auth.login_rate",
	"LOGIN_BURST":       "auth.login_burst",
	"MEDIA_ROOT":        "media.root",
	"MEDIA_URL":         "media.url",
	"PAGE_SIZE":         "pagination.page_size",
	"LOG_LEVEL":         "logging.level",
	"LOG_FORMAT":        "logging.format",
	"PDF_FONT_PATH":     "pdf.font_path",
}

// envValue maps an environment variable to its config key and value.
// Unknown variables map to an empty key and are skipped.
func envValue(key, value string) (string, interface{}) {
	path, ok := envKeys[key]
	if !ok {
		return "", nil
	}
	switch path {
	case "server.cors_origins", "server.trusted_proxies":
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return path, items
	}
	return path, value
}

// Load builds the configuration. A missing .env or YAML file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// DATABASE_DSN wins; otherwise postgres is assembled from its parts
	if cfg.Database.DSN == "" {
		switch cfg.Database.Driver {
		case "postgres":
			cfg.Database.DSN = cfg.Database.PostgresDSN()
		default:
			cfg.Database.DSN = "foodgram.db"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// PostgresDSN assembles a keyword/value DSN from the individual settings.
func (d DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Pagination.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.Pagination.PageSize)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret must not be empty")
	}
	if c.Database.Driver == "postgres" && c.Auth.JWTSecret == DevJWTSecret {
		return errors.New("jwt secret must be set when using postgres")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	return nil
}
