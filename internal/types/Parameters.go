/*

This file contains the mutable vault parameter set. Parameters are persisted in
the database with a config name and version; the active set is loaded at boot
and written through whenever an authorized mutator changes a value.

*/

package types

import (
	"errors"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for parameter validation
var (
	ErrFeeSumTooHigh    = errors.New("combined fee rates exceed the basis-point divisor")
	ErrInvalidThreshold = errors.New("reinvest threshold is invalid")
)

// BipsDivisor is the fixed-point denominator for all basis-point fee rates.
const BipsDivisor = 10000

// VaultParameters holds every operator-tunable value of the vault.
type VaultParameters struct {
	// Reinvest thresholds
	MinTokensToReinvest               sdkmath.Int `json:"min_tokens_to_reinvest"`                 // reinvest() reverts below this estimated reward
	MaxTokensToDepositWithoutReinvest sdkmath.Int `json:"max_tokens_to_deposit_without_reinvest"` // 0 disables the deposit-triggered reinvest

	// Fee rates in basis points. AdminFeeBips + DevFeeBips + ReinvestRewardBips
	// must never exceed BipsDivisor.
	AdminFeeBips       uint64 `json:"admin_fee_bips"`
	DevFeeBips         uint64 `json:"dev_fee_bips"`
	ReinvestRewardBips uint64 `json:"reinvest_reward_bips"`

	DepositsEnabled bool `json:"deposits_enabled"`
}

// FeeSum returns the combined fee rate in basis points.
func (p VaultParameters) FeeSum() uint64 {
	return p.AdminFeeBips + p.DevFeeBips + p.ReinvestRewardBips
}

// Validate checks the joint fee-rate invariant and threshold sanity.
func (p VaultParameters) Validate() error {
	if p.FeeSum() > BipsDivisor {
		return ErrFeeSumTooHigh
	}
	if p.MinTokensToReinvest.IsNil() || p.MinTokensToReinvest.IsNegative() {
		return ErrInvalidThreshold
	}
	if p.MaxTokensToDepositWithoutReinvest.IsNil() || p.MaxTokensToDepositWithoutReinvest.IsNegative() {
		return ErrInvalidThreshold
	}
	return nil
}
