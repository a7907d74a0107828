package config

import (
	"account-service/internal/auth"
	"account-service/internal/core"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Application holds all the application-wide dependencies.
type Application struct {
	Config         Config
	Logger         zerolog.Logger
	Store          core.UserRepository
	Users          core.UserService
	Tokens         *auth.TokenIssuer
	Images         core.ImageStore // nil when object storage is not configured
	Redis          *redis.Client   // nil when Redis is not configured
	TracerProvider *trace.TracerProvider
}

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"

	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// Config holds all the configuration variables for the application.
type Config struct {
	Port               int      `mapstructure:"PORT"`
	AppEnv             string   `mapstructure:"APP_ENV"`
	LogLevel           string   `mapstructure:"LOG_LEVEL"`
	RequestTimeout     int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	BcryptCost         int    `mapstructure:"BCRYPT_COST"`

	// Storage
	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	MongoURI      string `mapstructure:"MONGODB_URI"`
	MongoDatabase string `mapstructure:"MONGODB_DATABASE"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`

	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     int    `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Mail
	MailQueue            string  `mapstructure:"MAIL_QUEUE"`
	MailWorkers          int     `mapstructure:"MAIL_WORKERS"`
	MailRatePerSecond    float64 `mapstructure:"MAIL_RATE_PER_SECOND"`
	SMTPHost             string  `mapstructure:"SMTP_HOST"`
	SMTPPort             int     `mapstructure:"SMTP_PORT"`
	SMTPUser             string  `mapstructure:"SMTP_USER"`
	SMTPPassword         string  `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom             string  `mapstructure:"SMTP_FROM"`
	FrontendURL          string  `mapstructure:"FRONTEND_URL"`
	ResetTokenTTLMinutes int     `mapstructure:"RESET_TOKEN_TTL_MINUTES"`

	// Object storage
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	DefaultAdminEmail    string `mapstructure:"DEFAULT_ADMIN_EMAIL"`
	DefaultAdminUsername string `mapstructure:"DEFAULT_ADMIN_USERNAME"`
	DefaultAdminPassword string `mapstructure:"DEFAULT_ADMIN_PASSWORD"`
}

// envKeys lists every key read from the environment.
var envKeys = []string{
	"PORT", "APP_ENV", "LOG_LEVEL", "REQUEST_TIMEOUT_SECONDS", "CORS_ALLOWED_ORIGINS",
	"JWT_SECRET", "JWT_EXPIRATION_HOURS", "BCRYPT_COST",
	"STORE_DRIVER", "MONGODB_URI", "MONGODB_DATABASE", "DATABASE_URL",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD",
	"MAIL_QUEUE", "MAIL_WORKERS", "MAIL_RATE_PER_SECOND",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD", "SMTP_FROM",
	"FRONTEND_URL", "RESET_TOKEN_TTL_MINUTES",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"DEFAULT_ADMIN_EMAIL", "DEFAULT_ADMIN_USERNAME", "DEFAULT_ADMIN_PASSWORD",
}

// secretKeys may be supplied as Docker secrets in production.
var secretKeys = map[string]string{
	"JWT_SECRET":       "jwt_secret",
	"MONGODB_URI":      "mongodb_uri",
	"DATABASE_URL":     "database_url",
	"REDIS_PASSWORD":   "redis_password",
	"SMTP_PASSWORD":    "smtp_password",
	"MINIO_SECRET_KEY": "minio_secret_key",
}

const defaultSecretsDir = "/run/secrets"

// Load reads configuration from secrets, environment variables, or defaults.
func Load() (Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if env == "development" {
		// Existing environment variables take precedence over .env.
		_ = godotenv.Load(".env")
		_ = godotenv.Load("../.env")
	}
	return load(env, defaultSecretsDir)
}

func load(env, secretsDir string) (config Config, err error) {
	v := viper.New()
	v.Set("APP_ENV", env)

	if env == "production" {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	} else {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("REQUEST_TIMEOUT_SECONDS", 60)
		v.SetDefault("JWT_SECRET", "development-secret-change-me-please!")
		v.SetDefault("DEFAULT_ADMIN_EMAIL", "admin@example.com")
		v.SetDefault("DEFAULT_ADMIN_USERNAME", "admin")
		v.SetDefault("DEFAULT_ADMIN_PASSWORD", "admin123!")
	}

	// Universal Defaults
	v.SetDefault("PORT", 3000)
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:3003", "http://localhost:3005"})
	v.SetDefault("JWT_EXPIRATION_HOURS", 720)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("STORE_DRIVER", StoreMongo)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "defaultdb")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("MAIL_QUEUE", QueueMemory)
	v.SetDefault("MAIL_WORKERS", 2)
	v.SetDefault("MAIL_RATE_PER_SECOND", 5)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "noreply@neobazaar.com")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("RESET_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("MINIO_BUCKET", "profile-images")

	if env != "development" {
		for key, name := range secretKeys {
			loadSecret(v, secretsDir, key, name)
		}
	}

	// Environment variables override defaults. Secrets set above win over both.
	for _, key := range envKeys {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	err = v.Unmarshal(&config)
	return
}

// loadSecret reads a file from the secrets dir and sets it in Viper
func loadSecret(v *viper.Viper, dir, key, name string) {
	for _, filename := range []string{name, strings.ToUpper(name)} {
		content, err := os.ReadFile(filepath.Join(dir, filename))
		if err == nil && len(strings.TrimSpace(string(content))) > 0 {
			v.Set(key, strings.TrimSpace(string(content)))
			return
		}
	}
}

// Validate performs configuration validation
func (c *Config) Validate() error {
	var errs []string

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if c.IsProduction() && len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters long")
	}
	if c.JWTExpirationHours <= 0 {
		errs = append(errs, "JWT_EXPIRATION_HOURS must be positive")
	}

	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, "MONGODB_URI is required for the mongo store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres store")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER must be %q or %q", StoreMongo, StorePostgres))
	}

	switch c.MailQueue {
	case QueueMemory:
	case QueueRedis:
		if c.RedisHost == "" {
			errs = append(errs, "REDIS_HOST is required when MAIL_QUEUE=redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("MAIL_QUEUE must be %q or %q", QueueMemory, QueueRedis))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) GetJWTExpiration() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c *Config) GetResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenTTLMinutes) * time.Minute
}

func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func (c *Config) ObjectStorageEnabled() bool {
	return c.MinioEndpoint != ""
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
