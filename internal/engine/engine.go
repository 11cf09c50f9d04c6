/*

This file contains the compound engine: the scheduled loop that estimates the
outstanding reward, triggers the vault's reinvest when it clears the
threshold, and persists one CompoundSnapshot per cycle.

*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/stakeworks/acv/internal/logger"
	"github.com/stakeworks/acv/internal/state"
	"github.com/stakeworks/acv/internal/types"
	"github.com/stakeworks/acv/internal/utils"
	"github.com/stakeworks/acv/internal/vault"
)

const (
	// Export constants for use in main.go
	DEFAULT_PARAMS_CONFIG_NAME    = "default_acv_vault"
	DEFAULT_PARAMS_CONFIG_VERSION = 1
)

// Engine drives the vault's compounding on a schedule.
type Engine struct {
	logger zerolog.Logger
	vault  *vault.Vault

	// operator is the account the engine reinvests as; it collects the
	// caller reward for every scheduled compound.
	operator  string
	schedule  string // cron expression, e.g. "@every 15m"
	precision int    // deposit asset precision, for display-unit metrics

	configName    string
	configVersion int
}

// Config holds the configuration for creating a new Engine instance
type Config struct {
	Vault          *vault.Vault
	Operator       string
	Schedule       string
	AssetPrecision int
	ConfigName     string
	ConfigVersion  int
}

// NewEngine creates a new Engine instance with dependency injection
func NewEngine(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		logger:        logger.GetForComponent("compound_engine"),
		vault:         cfg.Vault,
		operator:      cfg.Operator,
		schedule:      cfg.Schedule,
		precision:     cfg.AssetPrecision,
		configName:    cfg.ConfigName,
		configVersion: cfg.ConfigVersion,
	}

	e.logger.Info().
		Str("operator", e.operator).
		Str("schedule", e.schedule).
		Str("configName", e.configName).
		Msg("Compound engine created")
	return e, nil
}

// validateEngineConfig validates the Engine configuration
func validateEngineConfig(cfg Config) error {
	if cfg.Vault == nil {
		return fmt.Errorf("vault cannot be nil")
	}
	if cfg.Operator == "" {
		return fmt.Errorf("operator address cannot be empty")
	}
	if cfg.Schedule == "" {
		return fmt.Errorf("compound schedule cannot be empty")
	}
	if cfg.ConfigName == "" {
		return fmt.Errorf("config name cannot be empty")
	}
	if cfg.ConfigVersion <= 0 {
		return fmt.Errorf("config version must be positive")
	}
	return nil
}

// Run starts the scheduled compound loop and blocks until ctx is cancelled.
// The first cycle runs immediately so a restart never waits a full period.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info().Str("schedule", e.schedule).Msg("Starting compound loop")

	e.RunCycle(ctx)

	c := cron.New()
	if _, err := c.AddFunc(e.schedule, func() { e.RunCycle(ctx) }); err != nil {
		return fmt.Errorf("invalid compound schedule %q: %w", e.schedule, err)
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	e.logger.Info().Msg("Compound loop stopped")
	return nil
}

// RunCycle executes one complete compound cycle: estimate, reinvest if the
// threshold is cleared, snapshot. Errors never propagate out of a cycle; they
// are recorded on the snapshot so the loop keeps its cadence.
func (e *Engine) RunCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	cycleStartTime := time.Now()
	cyclesTotal.Inc()

	// Unique cycle ID for tracing logs across the entire cycle
	cycleID := uuid.New().String()
	cycleLogger := e.logger.With().Str("cycle_id", cycleID).Logger()

	cycleLogger.Info().Msg("--- Starting Compound Cycle ---")

	zero := sdkmath.ZeroInt().String()
	snapshot := types.CompoundSnapshot{
		CycleNumber:     e.getCycleNumber(),
		Timestamp:       cycleStartTime,
		ParamsID:        e.getParamsID(),
		InitialDeposits: zero,
		InitialShares:   zero,
		EstimatedReward: zero,
		GrossReward:     zero,
		DevFee:          zero,
		AdminFee:        zero,
		CallerFee:       zero,
		NetRestaked:     zero,
		FinalDeposits:   zero,
		FinalShares:     zero,
	}

	initialDeposits, err := e.vault.TotalDeposits()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to query staked position")
		e.finalizeFailedCycle(&snapshot, cycleStartTime, err)
		return
	}
	initialShares := e.vault.TotalShares()
	snapshot.InitialDeposits = initialDeposits.String()
	snapshot.InitialShares = initialShares.String()
	snapshot.FinalDeposits = snapshot.InitialDeposits
	snapshot.FinalShares = snapshot.InitialShares

	estimated, err := e.vault.CheckReward()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to estimate reward")
		e.finalizeFailedCycle(&snapshot, cycleStartTime, err)
		return
	}
	snapshot.EstimatedReward = estimated.String()
	e.setGauge(pendingRewardGauge, estimated)
	cycleLogger.Info().
		Str("estimatedReward", estimated.String()).
		Str("minToReinvest", e.vault.Params().MinTokensToReinvest.String()).
		Msg("Reward estimated")

	outcome, err := e.vault.Reinvest(types.DirectCaller(e.operator))
	switch {
	case errors.Is(err, vault.ErrBelowThreshold):
		cycleLogger.Info().Str("estimatedReward", estimated.String()).Msg("Reward below threshold, nothing to compound")
	case err != nil:
		cycleLogger.Error().Err(err).Msg("Reinvest failed")
		e.finalizeFailedCycle(&snapshot, cycleStartTime, err)
		return
	default:
		snapshot.Reinvested = true
		snapshot.GrossReward = outcome.Gross.String()
		snapshot.DevFee = outcome.DevFee.String()
		snapshot.AdminFee = outcome.AdminFee.String()
		snapshot.CallerFee = outcome.CallerFee.String()
		snapshot.NetRestaked = outcome.Restaked.String()
		snapshot.EventIDs = []string{outcome.EventID}

		reinvestsTotal.Inc()
		if grossDisplay, convErr := utils.SDKIntToFloat64(outcome.Gross, e.precision); convErr == nil {
			grossRewardTotal.Add(grossDisplay)
		}
	}

	finalDeposits, err := e.vault.TotalDeposits()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to query final staked position, keeping initial values")
		finalDeposits = initialDeposits
	}
	finalShares := e.vault.TotalShares()
	snapshot.FinalDeposits = finalDeposits.String()
	snapshot.FinalShares = finalShares.String()
	e.setGauge(totalDepositsGauge, finalDeposits)
	e.setGauge(totalSharesGauge, finalShares)

	snapshot.DurationMS = time.Since(cycleStartTime).Milliseconds()
	cycleDuration.Observe(time.Since(cycleStartTime).Seconds())
	e.saveSnapshot(snapshot)

	cycleLogger.Info().
		Bool("reinvested", snapshot.Reinvested).
		Str("grossReward", snapshot.GrossReward).
		Str("finalDeposits", snapshot.FinalDeposits).
		Str("cycleDuration", time.Since(cycleStartTime).String()).
		Msg("--- Compound Cycle Completed ---")
}

// finalizeFailedCycle records the error on the snapshot and persists it so
// failed cycles stay visible in the history.
func (e *Engine) finalizeFailedCycle(snapshot *types.CompoundSnapshot, cycleStartTime time.Time, cause error) {
	cycleFailures.Inc()
	snapshot.ErrorMessage = cause.Error()
	snapshot.DurationMS = time.Since(cycleStartTime).Milliseconds()
	cycleDuration.Observe(time.Since(cycleStartTime).Seconds())
	e.saveSnapshot(*snapshot)
}

// getCycleNumber increments and returns the persistent cycle counter from database
func (e *Engine) getCycleNumber() int {
	cycleNumber, err := state.IncrementCycleNumber()
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to increment cycle number, using fallback")
		// Fallback to a timestamp-derived counter if the database fails
		return int(time.Now().Unix() % 1000000)
	}
	return cycleNumber
}

// getParamsID retrieves the current active vault parameters ID from database
func (e *Engine) getParamsID() *int64 {
	paramsID, err := state.GetActiveVaultParametersID(e.configName)
	if err != nil {
		e.logger.Error().Err(err).Str("configName", e.configName).Msg("Failed to get active vault parameters ID")
		return nil
	}
	return paramsID
}

// saveSnapshot saves the compound snapshot to database
func (e *Engine) saveSnapshot(snapshot types.CompoundSnapshot) {
	snapshotID, err := state.SaveCompoundSnapshot(snapshot)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to save compound snapshot to database")
		return
	}
	e.logger.Info().Int64("snapshot_id", snapshotID).Msg("Compound snapshot saved successfully")
}

func (e *Engine) setGauge(gauge interface{ Set(float64) }, amount sdkmath.Int) {
	display, err := utils.SDKIntToFloat64(amount, e.precision)
	if err != nil {
		return
	}
	gauge.Set(display)
}
