/*

This file persists vault accounting events. PostgresRecorder is handed to the
vault at boot so every deposit, withdrawal and reinvest lands in the
vault_events table; the query helpers feed the dashboard API.

*/

package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/stakeworks/acv/internal/types"
)

// PostgresRecorder writes vault events through the global DB pool.
type PostgresRecorder struct{}

var _ types.Recorder = PostgresRecorder{}

// Record inserts one event row. The vault treats failures as non-fatal, so
// this only has to report them.
func (PostgresRecorder) Record(event types.Event) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO vault_events (
			event_id, event_type, event_timestamp, account, amount,
			total_deposits, total_shares
		) VALUES ($1, $2, $3, $4, $5, $6, $7);`

	var totalDeposits, totalShares interface{}
	if !event.TotalDeposits.IsNil() {
		totalDeposits = event.TotalDeposits.String()
	}
	if !event.TotalShares.IsNil() {
		totalShares = event.TotalShares.String()
	}

	_, err := DB.Exec(
		query,
		event.ID, string(event.Type), event.Timestamp, event.Account, event.Amount.String(),
		totalDeposits, totalShares,
	)
	if err != nil {
		return fmt.Errorf("failed to insert vault event %s: %w", event.ID, err)
	}

	log.Debug().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("amount", event.Amount.String()).
		Msg("Persisted vault event")
	return nil
}

// GetRecentEvents retrieves the newest events, most recent first.
func GetRecentEvents(limit int) ([]types.Event, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 500 {
		limit = 50 // Default limit
	}

	query := `
		SELECT event_id, event_type, event_timestamp, account, amount,
		       total_deposits, total_shares
		FROM vault_events
		ORDER BY event_timestamp DESC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent events")
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("count", len(events)).Int("limit", limit).Msg("Retrieved recent events")
	return events, nil
}

// GetEventsByAccount retrieves the newest events for one account.
func GetEventsByAccount(account string, limit int) ([]types.Event, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT event_id, event_type, event_timestamp, account, amount,
		       total_deposits, total_shares
		FROM vault_events
		WHERE account = $1
		ORDER BY event_timestamp DESC
		LIMIT $2;`

	rows, err := DB.Query(query, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for account %s: %w", account, err)
	}
	defer rows.Close()

	return scanEventRows(rows)
}

func scanEventRows(rows *sql.Rows) ([]types.Event, error) {
	var events []types.Event
	for rows.Next() {
		var event types.Event
		var account sql.NullString
		var amount string
		var totalDeposits, totalShares sql.NullString

		err := rows.Scan(
			&event.ID, &event.Type, &event.Timestamp, &account, &amount,
			&totalDeposits, &totalShares,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan event row")
			continue // Skip this row and continue with others
		}

		event.Account = account.String
		var ok bool
		event.Amount, ok = sdkmath.NewIntFromString(amount)
		if !ok {
			log.Error().Str("event_id", event.ID).Str("amount", amount).Msg("Stored event amount is not an integer")
			continue
		}
		if totalDeposits.Valid {
			if v, ok := sdkmath.NewIntFromString(totalDeposits.String); ok {
				event.TotalDeposits = v
			}
		}
		if totalShares.Valid {
			if v, ok := sdkmath.NewIntFromString(totalShares.String); ok {
				event.TotalShares = v
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during event row iteration: %w", err)
	}
	return events, nil
}
