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
	cfg, err := load("development", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, QueueMemory, cfg.MailQueue)
	assert.Equal(t, 30*24*time.Hour, cfg.GetJWTExpiration())
	assert.Equal(t, time.Hour, cfg.GetResetTokenTTL())
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.ObjectStorageEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/accounts")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("MAIL_RATE_PER_SECOND", "2.5")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := load("development", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://u:p@db:5432/accounts", cfg.DatabaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2.5, cfg.MailRatePerSecond)
	assert.True(t, cfg.MinioUseSSL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadProductionSecrets(t *testing.T) {
	dir := t.TempDir()
	secret := "a-production-secret-that-is-at-least-32-chars"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_secret"), []byte(secret+"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MONGODB_URI"), []byte("mongodb://mongo:27017"), 0o600))

	cfg, err := load("production", dir)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, secret, cfg.JWTSecret)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DefaultAdminEmail)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			AppEnv:             "production",
			JWTSecret:          "a-production-secret-that-is-at-least-32-chars",
			JWTExpirationHours: 720,
			StoreDriver:        StoreMongo,
			MongoURI:           "mongodb://localhost:27017",
			MailQueue:          QueueMemory,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Valid", func(c *Config) {}, ""},
		{"MissingSecret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"ShortSecret", func(c *Config) { c.JWTSecret = "short" }, "at least 32 characters"},
		{"UnknownStore", func(c *Config) { c.StoreDriver = "sqlite" }, "STORE_DRIVER must be"},
		{"PostgresWithoutURL", func(c *Config) { c.StoreDriver = StorePostgres }, "DATABASE_URL is required"},
		{"RedisQueueWithoutHost", func(c *Config) { c.MailQueue = QueueRedis }, "REDIS_HOST is required"},
		{"UnknownQueue", func(c *Config) { c.MailQueue = "kafka" }, "MAIL_QUEUE must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
