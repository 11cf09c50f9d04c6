/*

This file contains the vault aggregate: construction, the atomic-operation
harness, the admin surface (parameter mutators, allowances, rescue) and event
recording. Share accounting lives in accounting.go, the reward pipeline in
reinvest.go.

*/

package vault

import (
	"crypto/ed25519"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stakeworks/acv/internal/ledger"
	"github.com/stakeworks/acv/internal/logger"
	"github.com/stakeworks/acv/internal/staking"
	"github.com/stakeworks/acv/internal/swap"
	"github.com/stakeworks/acv/internal/types"
)

// maxAllowance is the spending cap granted to the pool and the venue by
// SetAllowances. Large enough to never constrain an operation.
var maxAllowance = sdkmath.NewIntWithDecimal(1, 30)

// Config holds everything needed to construct a Vault.
type Config struct {
	Address string // the vault's own bank account
	Owner   string // only account allowed on the admin surface

	DepositAsset    types.Asset
	RewardAsset     types.Asset
	PoolRewardAsset types.Asset
	PoolID          types.PoolID

	AdminFeeAddress string
	DevFeeAddress   string

	// PoolSpender and SwapSpender are the accounts the pool and the venue
	// pull vault funds through; SetAllowances grants them spending rights.
	PoolSpender string
	SwapSpender string

	Params types.VaultParameters

	Shares    ledger.ShareLedger
	Bank      ledger.AssetBank
	Pool      staking.Adapter
	Converter swap.Converter
	Recorder  types.Recorder

	// ParamSink, when set, is called with the full parameter set after every
	// successful mutator so parameters survive restarts.
	ParamSink func(types.VaultParameters) error
}

// Vault is the share-accounting and reinvestment engine. All state it protects
// lives in the injected ledgers and the external pool; the vault itself only
// holds configuration and the collaborator handles, and serializes operations
// so each one is atomic.
type Vault struct {
	logger zerolog.Logger
	mu     sync.Mutex

	address string
	owner   string

	depositAsset    types.Asset
	rewardAsset     types.Asset
	poolRewardAsset types.Asset
	poolID          types.PoolID

	adminFeeAddress string
	devFeeAddress   string
	poolSpender     string
	swapSpender     string

	params types.VaultParameters

	shares    ledger.ShareLedger
	bank      ledger.AssetBank
	pool      staking.Adapter
	converter swap.Converter
	recorder  types.Recorder
	paramSink func(types.VaultParameters) error

	// Registered Ed25519 keys for deposit-with-signed-authorization.
	authKeys map[string]ed25519.PublicKey
}

// NewVault validates the configuration, grants the collaborator allowances and
// records the zero-value baseline reinvest event.
func NewVault(cfg Config) (*Vault, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	v := &Vault{
		logger:          logger.GetForComponent("vault_core"),
		address:         cfg.Address,
		owner:           cfg.Owner,
		depositAsset:    cfg.DepositAsset,
		rewardAsset:     cfg.RewardAsset,
		poolRewardAsset: cfg.PoolRewardAsset,
		poolID:          cfg.PoolID,
		adminFeeAddress: cfg.AdminFeeAddress,
		devFeeAddress:   cfg.DevFeeAddress,
		poolSpender:     cfg.PoolSpender,
		swapSpender:     cfg.SwapSpender,
		params:          cfg.Params,
		shares:          cfg.Shares,
		bank:            cfg.Bank,
		pool:            cfg.Pool,
		converter:       cfg.Converter,
		recorder:        cfg.Recorder,
		paramSink:       cfg.ParamSink,
		authKeys:        make(map[string]ed25519.PublicKey),
	}

	if err := v.setAllowances(); err != nil {
		return nil, fmt.Errorf("%w: initial allowances: %w", ErrConfiguration, err)
	}

	// Baseline record so the event log always has a defined starting point.
	v.recordEvent(types.Event{
		Type:          types.EventReinvest,
		Amount:        sdkmath.ZeroInt(),
		TotalDeposits: sdkmath.ZeroInt(),
		TotalShares:   sdkmath.ZeroInt(),
	})

	v.logger.Info().
		Uint64("poolID", uint64(cfg.PoolID)).
		Str("depositDenom", cfg.DepositAsset.Denom).
		Str("rewardDenom", cfg.RewardAsset.Denom).
		Msg("Vault initialized")
	return v, nil
}

func validateConfig(cfg Config) error {
	if cfg.Address == "" || cfg.Owner == "" {
		return fmt.Errorf("vault and owner addresses are required")
	}
	if cfg.DepositAsset.Denom == "" || cfg.RewardAsset.Denom == "" || cfg.PoolRewardAsset.Denom == "" {
		return fmt.Errorf("deposit, reward and pool reward assets are required")
	}
	if cfg.AdminFeeAddress == "" || cfg.DevFeeAddress == "" {
		return fmt.Errorf("fee recipient addresses are required")
	}
	if cfg.PoolSpender == "" || cfg.SwapSpender == "" {
		return fmt.Errorf("pool and swap spender addresses are required")
	}
	if cfg.Shares == nil || cfg.Bank == nil || cfg.Pool == nil || cfg.Converter == nil {
		return fmt.Errorf("shares, bank, pool and converter collaborators are required")
	}
	if err := cfg.Params.Validate(); err != nil {
		return err
	}
	return nil
}

// atomically runs op with every snapshot-capable collaborator checkpointed. If
// op fails, all in-process state is rolled back before the error surfaces, so
// no partial fee transfer, mint or stake is observable.
func (v *Vault) atomically(op func() error) error {
	type checkpoint struct {
		snap types.Snapshotter
		id   int
	}
	var checkpoints []checkpoint
	for _, collaborator := range []any{v.shares, v.bank, v.pool, v.converter} {
		if snap, ok := collaborator.(types.Snapshotter); ok {
			checkpoints = append(checkpoints, checkpoint{snap, snap.Snapshot()})
		}
	}

	err := op()
	if err == nil {
		// Checkpoints hold full state copies; a completed operation must
		// release them or they accumulate for the process lifetime.
		for i := len(checkpoints) - 1; i >= 0; i-- {
			if releaseErr := checkpoints[i].snap.Release(checkpoints[i].id); releaseErr != nil {
				v.logger.Error().Err(releaseErr).Msg("Failed to release collaborator checkpoint after completed operation")
			}
		}
		return nil
	}
	for i := len(checkpoints) - 1; i >= 0; i-- {
		if revertErr := checkpoints[i].snap.RevertTo(checkpoints[i].id); revertErr != nil {
			v.logger.Error().Err(revertErr).Msg("Failed to revert collaborator state after aborted operation")
		}
	}
	return err
}

// recordEvent assigns identity and timestamp and hands the event to the
// recorder. Recording failures are logged, never fatal: the accounting change
// already happened and must not be rolled back over a telemetry sink.
func (v *Vault) recordEvent(event types.Event) string {
	event.ID = uuid.New().String()
	event.Timestamp = time.Now().UTC()
	if v.recorder != nil {
		if err := v.recorder.Record(event); err != nil {
			v.logger.Error().Err(err).Str("eventType", string(event.Type)).Msg("Failed to record accounting event")
		}
	}
	return event.ID
}

func (v *Vault) requireOwner(caller types.Caller) error {
	if caller.Address != v.owner {
		return fmt.Errorf("%w: %s is not the vault owner", ErrPermission, caller.Address)
	}
	return nil
}

// persistParams pushes the current parameter set through the sink, if any.
func (v *Vault) persistParams() {
	if v.paramSink == nil {
		return
	}
	if err := v.paramSink(v.params); err != nil {
		v.logger.Error().Err(err).Msg("Failed to persist vault parameters")
	}
}

// Params returns a copy of the current parameter set.
func (v *Vault) Params() types.VaultParameters {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.params
}

// UpdateMinTokensToReinvest sets the public reinvest threshold.
func (v *Vault) UpdateMinTokensToReinvest(caller types.Caller, amount sdkmath.Int) error {
	if err := v.requireOwner(caller); err != nil {
		return err
	}
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("%w: %w", ErrConfiguration, types.ErrInvalidThreshold)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.params.MinTokensToReinvest = amount
	v.persistParams()
	v.logger.Info().Str("minTokensToReinvest", amount.String()).Msg("Reinvest threshold updated")
	return nil
}

// UpdateMaxTokensToDepositWithoutReinvest sets the deposit-triggered reinvest
// threshold. Zero disables the trigger.
func (v *Vault) UpdateMaxTokensToDepositWithoutReinvest(caller types.Caller, amount sdkmath.Int) error {
	if err := v.requireOwner(caller); err != nil {
		return err
	}
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("%w: %w", ErrConfiguration, types.ErrInvalidThreshold)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.params.MaxTokensToDepositWithoutReinvest = amount
	v.persistParams()
	v.logger.Info().Str("maxTokensToDepositWithoutReinvest", amount.String()).Msg("Force-reinvest threshold updated")
	return nil
}

// UpdateAdminFee sets the admin fee rate, holding the joint fee-sum invariant.
func (v *Vault) UpdateAdminFee(caller types.Caller, bips uint64) error {
	return v.updateFee(caller, "admin", bips)
}

// UpdateDevFee sets the dev fee rate, holding the joint fee-sum invariant.
func (v *Vault) UpdateDevFee(caller types.Caller, bips uint64) error {
	return v.updateFee(caller, "dev", bips)
}

// UpdateReinvestReward sets the caller reward rate, holding the joint fee-sum
// invariant.
func (v *Vault) UpdateReinvestReward(caller types.Caller, bips uint64) error {
	return v.updateFee(caller, "reinvest", bips)
}

func (v *Vault) updateFee(caller types.Caller, which string, bips uint64) error {
	if err := v.requireOwner(caller); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	candidate := v.params
	switch which {
	case "admin":
		candidate.AdminFeeBips = bips
	case "dev":
		candidate.DevFeeBips = bips
	case "reinvest":
		candidate.ReinvestRewardBips = bips
	}
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	v.params = candidate
	v.persistParams()
	v.logger.Info().Str("fee", which).Uint64("bips", bips).Msg("Fee rate updated")
	return nil
}

// UpdateDepositsEnabled opens or closes the vault for new deposits.
func (v *Vault) UpdateDepositsEnabled(caller types.Caller, enabled bool) error {
	if err := v.requireOwner(caller); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.params.DepositsEnabled = enabled
	v.persistParams()
	v.logger.Info().Bool("depositsEnabled", enabled).Msg("Deposit gate updated")
	return nil
}

// SetAllowances re-grants the pool and the venue their spending rights over
// the vault's assets.
func (v *Vault) SetAllowances(caller types.Caller) error {
	if err := v.requireOwner(caller); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setAllowances()
}

func (v *Vault) setAllowances() error {
	for _, grant := range []struct {
		spender string
		denom   string
	}{
		{v.poolSpender, v.depositAsset.Denom},
		{v.swapSpender, v.poolRewardAsset.Denom},
		{v.swapSpender, v.rewardAsset.Denom},
	} {
		if err := v.bank.Approve(v.address, grant.spender, grant.denom, maxAllowance); err != nil {
			return fmt.Errorf("approve %s for %s: %w", grant.denom, grant.spender, err)
		}
	}
	return nil
}

// RescueDeployedFunds is the circuit breaker for a compromised or frozen pool:
// it performs a best-effort emergency unstake, verifies the recovered amount
// and optionally closes the vault for new deposits.
func (v *Vault) RescueDeployedFunds(caller types.Caller, minAcceptable sdkmath.Int, disableDeposits bool) error {
	if err := v.requireOwner(caller); err != nil {
		return err
	}
	if minAcceptable.IsNil() || minAcceptable.IsNegative() {
		return fmt.Errorf("%w: minimum acceptable amount is invalid", ErrConfiguration)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	err := v.atomically(func() error {
		before := v.bank.BalanceOf(v.address, v.depositAsset.Denom)
		if err := v.pool.EmergencyUnstake(v.poolID); err != nil {
			return fmt.Errorf("emergency unstake failed: %w", err)
		}
		recovered := v.bank.BalanceOf(v.address, v.depositAsset.Denom).Sub(before)
		if recovered.LT(minAcceptable) {
			return fmt.Errorf("%w: recovered %s, required %s", ErrInsufficientRescue, recovered, minAcceptable)
		}
		v.logger.Warn().
			Str("recovered", recovered.String()).
			Bool("disableDeposits", disableDeposits).
			Msg("Deployed funds rescued")
		return nil
	})
	if err != nil {
		return err
	}

	if disableDeposits {
		v.params.DepositsEnabled = false
		v.persistParams()
	}

	totalDeposits, err := v.TotalDeposits()
	if err != nil {
		totalDeposits = sdkmath.ZeroInt()
	}
	v.recordEvent(types.Event{
		Type:          types.EventReinvest,
		Amount:        sdkmath.ZeroInt(),
		TotalDeposits: totalDeposits,
		TotalShares:   v.shares.TotalSupply(),
	})
	return nil
}
