package database

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DatabaseConfig holds database pool configuration
type DatabaseConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		MaxConns:          20,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: 5 * time.Minute,
	}
}

// ConnectDB creates a traced pgx pool and pings it.
func ConnectDB(ctx context.Context, dsn string, dbConfig *DatabaseConfig) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	config.MaxConns = dbConfig.MaxConns
	config.MinConns = dbConfig.MinConns
	config.MaxConnLifetime = dbConfig.MaxConnLifetime
	config.MaxConnIdleTime = dbConfig.MaxConnIdleTime
	config.HealthCheckPeriod = dbConfig.HealthCheckPeriod

	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "SET application_name = 'account-service'"); err != nil {
			log.Warn().Err(err).Msg("Failed to set application name")
		}
		if _, err := conn.Exec(ctx, "SET timezone = 'UTC'"); err != nil {
			log.Warn().Err(err).Msg("Failed to set timezone")
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Info().
		Int32("max_conns", config.MaxConns).
		Int32("min_conns", config.MinConns).
		Msg("Database connection pool established")
	return pool, nil
}

// The constraint names must match repository.EmailIndexName and
// repository.UsernameIndexName; duplicate detection keys off them.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS auth`,
	`CREATE TABLE IF NOT EXISTS auth.users (
		id UUID PRIMARY KEY,
		username VARCHAR(50) NOT NULL,
		email VARCHAR(254) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		image VARCHAR(512) NOT NULL DEFAULT '',
		role VARCHAR(10) NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
		reset_password_token VARCHAR(64),
		reset_password_expiry TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		CONSTRAINT users_email_key UNIQUE (email),
		CONSTRAINT users_username_key UNIQUE (username),
		CONSTRAINT users_reset_pair CHECK ((reset_password_token IS NULL) = (reset_password_expiry IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_created_at ON auth.users (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_users_reset_token ON auth.users (reset_password_token) WHERE reset_password_token IS NOT NULL`,
}

// InitializeSchema creates the users table and its indexes.
func InitializeSchema(ctx context.Context, db *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	log.Info().Msg("Database schema initialized successfully")
	return nil
}

// StartConnectionMonitoring logs pool statistics until ctx is done.
func StartConnectionMonitoring(ctx context.Context, db *pgxpool.Pool) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := db.Stat()
				log.Debug().
					Int32("total_conns", stats.TotalConns()).
					Int32("acquired_conns", stats.AcquiredConns()).
					Int32("idle_conns", stats.IdleConns()).
					Dur("acquire_duration", stats.AcquireDuration()).
					Msg("Database connection pool statistics")
			}
		}
	}()
}
