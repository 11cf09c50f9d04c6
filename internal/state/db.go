// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
//
// Amount columns are NUMERIC(40, 0): base-unit integers, never fractional.
// They round-trip through sdkmath.Int via its string form.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS vault_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			min_tokens_to_reinvest NUMERIC(40, 0) NOT NULL,
			max_tokens_to_deposit_without_reinvest NUMERIC(40, 0) NOT NULL,
			admin_fee_bips BIGINT NOT NULL,
			dev_fee_bips BIGINT NOT NULL,
			reinvest_reward_bips BIGINT NOT NULL,
			deposits_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			CONSTRAINT uq_vault_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_vault_parameters_config_active_timestamp ON vault_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS vault_events (
			event_id UUID PRIMARY KEY,
			event_type VARCHAR(20) NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			account VARCHAR(255),
			amount NUMERIC(40, 0) NOT NULL,
			total_deposits NUMERIC(40, 0),
			total_shares NUMERIC(40, 0)
		);
		CREATE INDEX IF NOT EXISTS idx_vault_events_timestamp ON vault_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_vault_events_type ON vault_events(event_type);
		CREATE INDEX IF NOT EXISTS idx_vault_events_account ON vault_events(account);

		CREATE TABLE IF NOT EXISTS compound_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			cycle_number INTEGER NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			params_id INTEGER REFERENCES vault_parameters(params_id),

			-- Pre-reinvest state
			initial_deposits NUMERIC(40, 0) NOT NULL,
			initial_shares NUMERIC(40, 0) NOT NULL,

			-- Reward pipeline
			estimated_reward NUMERIC(40, 0) NOT NULL,
			gross_reward NUMERIC(40, 0) NOT NULL,
			dev_fee NUMERIC(40, 0) NOT NULL,
			admin_fee NUMERIC(40, 0) NOT NULL,
			caller_fee NUMERIC(40, 0) NOT NULL,
			net_restaked NUMERIC(40, 0) NOT NULL,

			-- Post-reinvest state
			final_deposits NUMERIC(40, 0) NOT NULL,
			final_shares NUMERIC(40, 0) NOT NULL,

			reinvested BOOLEAN NOT NULL,
			error_message TEXT,
			event_ids TEXT[],
			duration_ms BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_compound_snapshots_timestamp ON compound_snapshots(snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_compound_snapshots_cycle ON compound_snapshots(cycle_number DESC);

		-- Cycle counter table for persistent global cycle tracking
		CREATE TABLE IF NOT EXISTS compound_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_cycle INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO compound_counter (id, current_cycle)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
