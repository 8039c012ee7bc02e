package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "foodgram.db", cfg.Database.DSN)
	assert.Equal(t, 6, cfg.Pagination.PageSize)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "media", cfg.Media.Root)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("PAGE_SIZE", "10")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,172.17.0.1")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Pagination.PageSize)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "172.17.0.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadPostgresDSNFromParts(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("POSTGRES_DB", "recipes")
	t.Setenv("POSTGRES_USER", "cook")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("JWT_SECRET", "production-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "host=db port=5432 user=cook password=secret dbname=recipes sslmode=disable", cfg.Database.DSN)
}

func TestLoadPostgresRequiresSecret(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foodgram.yaml")
	content := "server:\n  port: \"7000\"\npagination:\n  page_size: 12\npdf:\n  font_path: /fonts/DejaVuSans.ttf\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv(PathEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 12, cfg.Pagination.PageSize)
	assert.Equal(t, "/fonts/DejaVuSans.ttf", cfg.PDF.FontPath)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Pagination.PageSize = 0
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	assert.NoError(t, cfg.Validate())
}
