// File: cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"account-service/docs"
	"account-service/internal/auth"
	"account-service/internal/config"
	"account-service/internal/database"
	"account-service/internal/handlers"
	"account-service/internal/notify"
	"account-service/internal/repository"
	"account-service/internal/router"
	"account-service/internal/service"
	"account-service/internal/storage"
	"account-service/internal/telemetry"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Version information (set during build)
	version   = "1.0.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const mailOutboxKey = "account-service:mail-outbox"

// @title           Account Service API
// @version         1.0.0
// @description     User accounts: registration, JWT login, password reset and admin management.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @BasePath  /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	// Initialize logger first
	logger := initLogger()

	logger.Info().
		Str("version", version).
		Str("build_time", buildTime).
		Str("git_commit", gitCommit).
		Str("go_version", runtime.Version()).
		Str("os", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Msg("Starting account service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Configuration validation failed")
	}

	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	handlers.Version = version
	docs.SwaggerInfo.Version = version

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	tp, err := telemetry.InitTracerProvider(ctx, cfg.OTelEndpoint, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize TracerProvider")
	}

	app := &config.Application{
		Config:         cfg,
		Logger:         logger,
		TracerProvider: tp,
	}

	closeStore, err := connectStore(ctx, app)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("User store initialization failed")
	}

	if cfg.RedisEnabled() {
		app.Redis, err = connectRedis(ctx, cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Redis connection failed after all retries")
		}
		logger.Info().Str("addr", cfg.RedisAddr()).Msg("Redis client initialized")
	}

	dispatcher, err := buildDispatcher(app)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build mail dispatcher")
	}
	dispatcher.Start(ctx)

	if cfg.ObjectStorageEnabled() {
		images, err := storage.NewMinioImageStore(ctx, storage.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Object storage initialization failed")
		}
		app.Images = images
	} else {
		logger.Info().Msg("Object storage not configured, image uploads disabled")
	}

	app.Tokens = auth.NewTokenIssuer(cfg.JWTSecret, cfg.GetJWTExpiration(), telemetry.ServiceName)
	app.Users = service.NewUserService(
		app.Store,
		auth.NewBcryptHasher(cfg.BcryptCost),
		app.Tokens,
		dispatcher,
		logger,
		service.Options{ResetTokenTTL: cfg.GetResetTokenTTL()},
	)

	// Seed default admin in development
	database.SeedDefaultAdmin(ctx, app)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.Setup(app),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.Port).
			Str("env", cfg.AppEnv).
			Str("store", cfg.StoreDriver).
			Msg("Starting HTTP server")

		serverErrors <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	case sig := <-quit:
		logger.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal, starting graceful shutdown...")

		gracefulShutdown(srv, app, dispatcher, closeStore, logger)
	}

	logger.Info().Msg("Server stopped gracefully")
}

// initLogger initializes the global logger
func initLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return log.With().
		Timestamp().
		Caller().
		Logger()
}

// retry runs fn up to attempts times with a linear backoff.
func retry(logger zerolog.Logger, name string, attempts int, fn func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		logger.Warn().
			Err(err).
			Str("dependency", name).
			Int("attempt", attempt).
			Msg("Connection failed, retrying...")
		if attempt < attempts {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}
	return err
}

// connectStore opens the configured user store, prepares its schema or
// indexes and sets app.Store. The returned func releases the connection.
func connectStore(ctx context.Context, app *config.Application) (func(context.Context), error) {
	cfg := app.Config

	switch cfg.StoreDriver {
	case config.StorePostgres:
		var repo *repository.PostgresUserRepository
		var closeFn func(context.Context)
		err := retry(app.Logger, "postgres", 5, func() error {
			pool, err := database.ConnectDB(ctx, cfg.DatabaseURL, database.DefaultDatabaseConfig())
			if err != nil {
				return err
			}
			repo = repository.NewPostgresUserRepository(pool)
			closeFn = func(context.Context) { pool.Close() }
			if err := database.InitializeSchema(ctx, pool); err != nil {
				pool.Close()
				return err
			}
			database.StartConnectionMonitoring(ctx, pool)
			return nil
		})
		if err != nil {
			return nil, err
		}
		app.Store = repo
		return closeFn, nil

	default:
		var repo *repository.MongoUserRepository
		var closeFn func(context.Context)
		err := retry(app.Logger, "mongodb", 5, func() error {
			client, err := database.ConnectMongo(ctx, cfg.MongoURI)
			if err != nil {
				return err
			}
			repo = repository.NewMongoUserRepository(client.Database(cfg.MongoDatabase))
			closeFn = func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					app.Logger.Error().Err(err).Msg("MongoDB disconnect error")
				}
			}
			if err := repo.EnsureIndexes(ctx); err != nil {
				_ = client.Disconnect(ctx)
				return err
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		app.Store = repo
		return closeFn, nil
	}
}

func connectRedis(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.RedisPassword,
		DB:           0,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  6 * time.Second, // above the outbox BRPOP timeout
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	client.AddHook(redisotel.NewTracingHook())

	err := retry(logger, "redis", 5, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// buildDispatcher picks the mail transport and outbox from configuration.
func buildDispatcher(app *config.Application) (*notify.Dispatcher, error) {
	cfg := app.Config

	var mailer notify.Mailer
	if cfg.SMTPEnabled() {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		app.Logger.Warn().Msg("SMTP not configured, outgoing mail will only be logged")
		mailer = notify.NewLogMailer(app.Logger)
	}

	var outbox notify.Outbox
	switch cfg.MailQueue {
	case config.QueueRedis:
		if app.Redis == nil {
			return nil, errors.New("MAIL_QUEUE=redis requires REDIS_HOST")
		}
		outbox = notify.NewRedisOutbox(app.Redis, mailOutboxKey)
	default:
		outbox = notify.NewMemoryOutbox(100)
	}

	return notify.NewDispatcher(mailer, outbox, notify.DispatcherConfig{
		FrontendURL:   cfg.FrontendURL,
		Workers:       cfg.MailWorkers,
		RatePerSecond: cfg.MailRatePerSecond,
	}, app.Logger), nil
}

// gracefulShutdown drains HTTP first so no request sees a closed dependency.
func gracefulShutdown(
	srv *http.Server,
	app *config.Application,
	dispatcher *notify.Dispatcher,
	closeStore func(context.Context),
	logger zerolog.Logger,
) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv.SetKeepAlivesEnabled(false)

	logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete")
	}

	logger.Info().Msg("Stopping mail dispatcher...")
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Mail dispatcher shutdown error")
	}

	logger.Info().Msg("Shutting down OpenTelemetry TracerProvider...")
	if err := app.TracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("TracerProvider shutdown error")
	}

	if app.Redis != nil {
		logger.Info().Msg("Closing Redis connections...")
		if err := app.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("Redis shutdown error")
		}
	}

	logger.Info().Msg("Closing user store...")
	closeStore(shutdownCtx)

	logger.Info().Msg("Graceful shutdown completed")
}
