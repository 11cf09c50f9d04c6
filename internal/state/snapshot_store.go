// ./internal/state/snapshot_store.go
package state

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/stakeworks/acv/internal/types"
)

// SaveCompoundSnapshot saves a complete compound-cycle snapshot to the database.
func SaveCompoundSnapshot(snapshot types.CompoundSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO compound_snapshots (
			cycle_number, snapshot_timestamp, params_id,
			initial_deposits, initial_shares,
			estimated_reward, gross_reward, dev_fee, admin_fee, caller_fee, net_restaked,
			final_deposits, final_shares,
			reinvested, error_message, event_ids, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err := DB.QueryRow(
		query,
		snapshot.CycleNumber, snapshot.Timestamp, snapshot.ParamsID,
		snapshot.InitialDeposits, snapshot.InitialShares,
		snapshot.EstimatedReward, snapshot.GrossReward, snapshot.DevFee, snapshot.AdminFee, snapshot.CallerFee, snapshot.NetRestaked,
		snapshot.FinalDeposits, snapshot.FinalShares,
		snapshot.Reinvested, snapshot.ErrorMessage, pq.Array(snapshot.EventIDs), snapshot.DurationMS,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save compound snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int("cycle_number", snapshot.CycleNumber).
		Bool("reinvested", snapshot.Reinvested).
		Msg("Compound snapshot saved to database")

	return snapshotID, nil
}

const snapshotColumns = `
	snapshot_id, cycle_number, snapshot_timestamp, params_id,
	initial_deposits, initial_shares,
	estimated_reward, gross_reward, dev_fee, admin_fee, caller_fee, net_restaked,
	final_deposits, final_shares,
	reinvested, error_message, event_ids, duration_ms`

func scanSnapshot(row interface{ Scan(...interface{}) error }) (types.CompoundSnapshot, error) {
	var s types.CompoundSnapshot
	var errorMessage sql.NullString
	err := row.Scan(
		&s.SnapshotID, &s.CycleNumber, &s.Timestamp, &s.ParamsID,
		&s.InitialDeposits, &s.InitialShares,
		&s.EstimatedReward, &s.GrossReward, &s.DevFee, &s.AdminFee, &s.CallerFee, &s.NetRestaked,
		&s.FinalDeposits, &s.FinalShares,
		&s.Reinvested, &errorMessage, pq.Array(&s.EventIDs), &s.DurationMS,
	)
	if err != nil {
		return s, err
	}
	s.ErrorMessage = errorMessage.String
	return s, nil
}

// GetRecentCycles retrieves recent compound snapshots, newest first.
func GetRecentCycles(limit int) ([]types.CompoundSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT ` + snapshotColumns + `
		FROM compound_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent cycles")
		return nil, fmt.Errorf("failed to query recent cycles: %w", err)
	}
	defer rows.Close()

	var cycles []types.CompoundSnapshot
	for rows.Next() {
		cycle, err := scanSnapshot(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan cycle row")
			continue // Skip this row and continue with others
		}
		cycles = append(cycles, cycle)
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error occurred during row iteration")
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Debug().Int("count", len(cycles)).Int("limit", limit).Msg("Retrieved recent cycles")
	return cycles, nil
}

// GetCycleByID retrieves a specific compound snapshot by its ID.
func GetCycleByID(snapshotID int64) (*types.CompoundSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT ` + snapshotColumns + `
		FROM compound_snapshots
		WHERE snapshot_id = $1;`

	cycle, err := scanSnapshot(DB.QueryRow(query, snapshotID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no compound snapshot found with id %d", snapshotID)
		}
		return nil, fmt.Errorf("failed to scan compound snapshot %d: %w", snapshotID, err)
	}
	return &cycle, nil
}

// GetLatestCycle retrieves the most recent compound snapshot, nil if none exist.
func GetLatestCycle() (*types.CompoundSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT ` + snapshotColumns + `
		FROM compound_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT 1;`

	cycle, err := scanSnapshot(DB.QueryRow(query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan latest compound snapshot: %w", err)
	}
	return &cycle, nil
}

// VaultSummary represents high-level vault statistics for the dashboard.
type VaultSummary struct {
	TotalDeposits string `json:"total_deposits"`
	TotalShares   string `json:"total_shares"`
	TotalCycles   int    `json:"total_cycles"`
	LastUpdated   string `json:"last_updated"`
}

// PerformanceMetrics represents aggregated compounding performance data.
type PerformanceMetrics struct {
	TotalGrossReward string `json:"total_gross_reward"`
	TotalDevFees     string `json:"total_dev_fees"`
	TotalAdminFees   string `json:"total_admin_fees"`
	TotalCallerFees  string `json:"total_caller_fees"`
	TotalRestaked    string `json:"total_restaked"`
	TotalCycles      int    `json:"total_cycles"`
	ReinvestedCycles int    `json:"reinvested_cycles"`
}

// GetVaultSummary returns the latest recorded vault totals and cycle count.
func GetVaultSummary() (*VaultSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT final_deposits, final_shares, cycle_number, snapshot_timestamp
		FROM compound_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT 1;`

	summary := &VaultSummary{}
	var timestamp sql.NullTime
	err := DB.QueryRow(query).Scan(&summary.TotalDeposits, &summary.TotalShares, &summary.TotalCycles, &timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return &VaultSummary{TotalDeposits: "0", TotalShares: "0"}, nil
		}
		return nil, fmt.Errorf("failed to query vault summary: %w", err)
	}
	if timestamp.Valid {
		summary.LastUpdated = timestamp.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return summary, nil
}

// GetPerformanceMetrics aggregates fee and restake totals across all cycles.
func GetPerformanceMetrics() (*PerformanceMetrics, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			COALESCE(SUM(gross_reward), 0)::TEXT,
			COALESCE(SUM(dev_fee), 0)::TEXT,
			COALESCE(SUM(admin_fee), 0)::TEXT,
			COALESCE(SUM(caller_fee), 0)::TEXT,
			COALESCE(SUM(net_restaked), 0)::TEXT,
			COUNT(*),
			COUNT(*) FILTER (WHERE reinvested)
		FROM compound_snapshots;`

	metrics := &PerformanceMetrics{}
	err := DB.QueryRow(query).Scan(
		&metrics.TotalGrossReward,
		&metrics.TotalDevFees,
		&metrics.TotalAdminFees,
		&metrics.TotalCallerFees,
		&metrics.TotalRestaked,
		&metrics.TotalCycles,
		&metrics.ReinvestedCycles,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance metrics: %w", err)
	}
	return metrics, nil
}
