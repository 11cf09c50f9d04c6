// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/stakeworks/acv/internal/types"
)

// SaveVaultParameters saves a new version of vault parameters.
func SaveVaultParameters(params types.VaultParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	if err := params.Validate(); err != nil {
		return 0, fmt.Errorf("refusing to persist invalid parameters: %w", err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE vault_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO vault_parameters (
            version, config_name, is_active, activated_at, created_at,
            min_tokens_to_reinvest, max_tokens_to_deposit_without_reinvest,
            admin_fee_bips, dev_fee_bips, reinvest_reward_bips,
            deposits_enabled
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7,
            $8, $9, $10,
            $11
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.MinTokensToReinvest.String(), params.MaxTokensToDepositWithoutReinvest.String(),
		params.AdminFeeBips, params.DevFeeBips, params.ReinvestRewardBips,
		params.DepositsEnabled,
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert vault parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved vault parameters")
	return paramsID, nil
}

// LoadActiveVaultParameters loads the currently active vault parameters.
func LoadActiveVaultParameters(configName string) (*types.VaultParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT
            min_tokens_to_reinvest, max_tokens_to_deposit_without_reinvest,
            admin_fee_bips, dev_fee_bips, reinvest_reward_bips,
            deposits_enabled
        FROM vault_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	p := &types.VaultParameters{}
	var minReinvest, maxNoReinvest string
	row := DB.QueryRow(query, configName)
	err := row.Scan(
		&minReinvest, &maxNoReinvest,
		&p.AdminFeeBips, &p.DevFeeBips, &p.ReinvestRewardBips,
		&p.DepositsEnabled,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active vault parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan active vault parameters for config '%s': %w", configName, err)
	}

	var ok bool
	p.MinTokensToReinvest, ok = sdkmath.NewIntFromString(minReinvest)
	if !ok {
		return nil, fmt.Errorf("stored min_tokens_to_reinvest is not an integer: %s", minReinvest)
	}
	p.MaxTokensToDepositWithoutReinvest, ok = sdkmath.NewIntFromString(maxNoReinvest)
	if !ok {
		return nil, fmt.Errorf("stored max_tokens_to_deposit_without_reinvest is not an integer: %s", maxNoReinvest)
	}

	log.Info().Str("config", configName).Msg("Loaded active vault parameters")
	return p, nil
}

// GetActiveVaultParametersID returns the params_id of the currently active vault parameters
func GetActiveVaultParametersID(configName string) (*int64, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT params_id
        FROM vault_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var paramsID int64
	row := DB.QueryRow(query, configName)
	err := row.Scan(&paramsID)

	if err != nil {
		if err == sql.ErrNoRows {
			// No active parameters found - this is valid, return nil
			log.Debug().Str("config", configName).Msg("No active vault parameters found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active vault parameters ID for config '%s': %w", configName, err)
	}

	log.Debug().
		Str("config", configName).
		Int64("params_id", paramsID).
		Msg("Retrieved active vault parameters ID")

	return &paramsID, nil
}

// NextParameterVersion returns one past the highest stored version for a config.
func NextParameterVersion(configName string) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `SELECT COALESCE(MAX(version), 0) + 1 FROM vault_parameters WHERE config_name = $1;`

	var next int
	if err := DB.QueryRow(query, configName).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next parameter version for config '%s': %w", configName, err)
	}
	return next, nil
}
