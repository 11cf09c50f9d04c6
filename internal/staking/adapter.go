package staking

import (
	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/acv/internal/types"
)

// Adapter defines the capability set the vault requires from an underlying
// staking pool. One implementation exists per pool family (memory, farm, ...);
// the vault holds the adapter by interface and never by concrete type.
//
// An adapter is bound to a single staking account at construction time: Stake,
// Unstake, EmergencyUnstake and HarvestRewards all act on behalf of that
// account.
type Adapter interface {
	// Stake deposits amount of the deposit asset into the pool. The pool may
	// charge its own entry fee; the net credited position is what
	// StakedBalance reports afterwards.
	Stake(poolID types.PoolID, amount sdkmath.Int) error

	// Unstake withdraws amount from the pool position. Fails with
	// ErrInsufficientStake if amount exceeds the position.
	Unstake(poolID types.PoolID, amount sdkmath.Int) error

	// EmergencyUnstake withdraws the entire position best-effort, forfeiting
	// any unclaimed rewards. Used only for fund recovery.
	EmergencyUnstake(poolID types.PoolID) error

	// HarvestRewards claims accrued pool-native reward tokens into the
	// staking account's holdings.
	HarvestRewards(poolID types.PoolID) error

	// PendingRewardEstimate returns the pool's estimate of unclaimed
	// pool-native reward accrual for holder.
	PendingRewardEstimate(poolID types.PoolID, holder string) (sdkmath.Int, error)

	// StakedBalance returns holder's position in deposit-asset terms, net of
	// any pool-applied withdrawal penalty.
	StakedBalance(poolID types.PoolID, holder string) (sdkmath.Int, error)

	// DepositFeeBips returns the pool's entry fee rate in basis points.
	DepositFeeBips(poolID types.PoolID) (uint64, error)

	// WithdrawFeeBips returns the pool's exit fee rate in basis points.
	WithdrawFeeBips(poolID types.PoolID) (uint64, error)

	// FeeDenominator returns the fixed-point denominator the pool's fee rates
	// are expressed against.
	FeeDenominator() (uint64, error)
}
