/*

This file contains the in-process staking pool used by sim mode and the test
suite. It behaves like a masterchef-style farm: positions are tracked per
(pool, holder), entry and exit fees are taken by the pool itself, and rewards
accrue as a pool-native token that HarvestRewards pays out through the bank.

*/

package staking

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/acv/internal/ledger"
	"github.com/stakeworks/acv/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInsufficientStake = errors.New("unstake amount exceeds staked position")
	ErrZeroAmount        = errors.New("stake amount resolves to zero")
	ErrUnknownSnapshot   = errors.New("snapshot handle is unknown")
)

// MemoryAdapter implements Adapter against an in-process pool backed by the
// asset bank. All staking moves are real bank transfers so balance assertions
// in tests observe the same flows a live pool would produce.
type MemoryAdapter struct {
	bank    ledger.AssetBank
	account string // the vault account this adapter stakes for
	escrow  string // the pool's own bank account

	depositDenom    string
	poolRewardDenom string

	depositFeeBips  uint64
	withdrawFeeBips uint64
	feeDenominator  uint64

	staked    map[string]sdkmath.Int // poolID|holder -> net position
	pending   map[string]sdkmath.Int // poolID|holder -> unclaimed pool rewards
	snapshots []memorySnapshot
}

type memorySnapshot struct {
	staked  map[string]sdkmath.Int
	pending map[string]sdkmath.Int
}

// MemoryAdapterConfig holds construction parameters for MemoryAdapter.
type MemoryAdapterConfig struct {
	Bank            ledger.AssetBank
	Account         string
	Escrow          string
	DepositDenom    string
	PoolRewardDenom string
	DepositFeeBips  uint64
	WithdrawFeeBips uint64
}

// NewMemoryAdapter creates an in-process pool adapter.
func NewMemoryAdapter(cfg MemoryAdapterConfig) (*MemoryAdapter, error) {
	if cfg.Bank == nil {
		return nil, errors.New("bank cannot be nil")
	}
	if cfg.Account == "" || cfg.Escrow == "" {
		return nil, errors.New("account and escrow addresses are required")
	}
	if cfg.DepositDenom == "" || cfg.PoolRewardDenom == "" {
		return nil, errors.New("deposit and pool reward denoms are required")
	}
	if cfg.DepositFeeBips >= types.BipsDivisor || cfg.WithdrawFeeBips >= types.BipsDivisor {
		return nil, errors.New("pool fee rates must be below the fee denominator")
	}
	return &MemoryAdapter{
		bank:            cfg.Bank,
		account:         cfg.Account,
		escrow:          cfg.Escrow,
		depositDenom:    cfg.DepositDenom,
		poolRewardDenom: cfg.PoolRewardDenom,
		depositFeeBips:  cfg.DepositFeeBips,
		withdrawFeeBips: cfg.WithdrawFeeBips,
		feeDenominator:  types.BipsDivisor,
		staked:          make(map[string]sdkmath.Int),
		pending:         make(map[string]sdkmath.Int),
	}, nil
}

func positionKey(poolID types.PoolID, holder string) string {
	return fmt.Sprintf("%d|%s", poolID, holder)
}

func (m *MemoryAdapter) Stake(poolID types.PoolID, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrZeroAmount
	}
	// The pool pulls the stake itself, so it only works once the vault has
	// granted it an allowance.
	if err := m.bank.TransferFrom(m.escrow, m.account, m.escrow, m.depositDenom, amount); err != nil {
		return fmt.Errorf("pool could not pull stake: %w", err)
	}
	fee := amount.MulRaw(int64(m.depositFeeBips)).QuoRaw(int64(m.feeDenominator))
	key := positionKey(poolID, m.account)
	m.staked[key] = m.position(key).Add(amount.Sub(fee))
	return nil
}

func (m *MemoryAdapter) Unstake(poolID types.PoolID, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrZeroAmount
	}
	key := positionKey(poolID, m.account)
	position := m.position(key)
	if position.LT(amount) {
		return fmt.Errorf("%w: position %s, requested %s", ErrInsufficientStake, position, amount)
	}
	fee := amount.MulRaw(int64(m.withdrawFeeBips)).QuoRaw(int64(m.feeDenominator))
	m.staked[key] = position.Sub(amount)
	if err := m.bank.Transfer(m.escrow, m.account, m.depositDenom, amount.Sub(fee)); err != nil {
		return fmt.Errorf("pool could not release stake: %w", err)
	}
	return nil
}

func (m *MemoryAdapter) EmergencyUnstake(poolID types.PoolID) error {
	key := positionKey(poolID, m.account)
	position := m.position(key)
	// Rewards are forfeited on the emergency path.
	m.pending[key] = sdkmath.ZeroInt()
	if position.IsZero() {
		return nil
	}
	fee := position.MulRaw(int64(m.withdrawFeeBips)).QuoRaw(int64(m.feeDenominator))
	m.staked[key] = sdkmath.ZeroInt()
	if err := m.bank.Transfer(m.escrow, m.account, m.depositDenom, position.Sub(fee)); err != nil {
		return fmt.Errorf("pool could not release stake: %w", err)
	}
	return nil
}

func (m *MemoryAdapter) HarvestRewards(poolID types.PoolID) error {
	key := positionKey(poolID, m.account)
	pending := m.pendingOf(key)
	if pending.IsZero() {
		return nil
	}
	m.pending[key] = sdkmath.ZeroInt()
	if err := m.bank.Mint(m.account, m.poolRewardDenom, pending); err != nil {
		return fmt.Errorf("pool could not pay rewards: %w", err)
	}
	return nil
}

func (m *MemoryAdapter) PendingRewardEstimate(poolID types.PoolID, holder string) (sdkmath.Int, error) {
	return m.pendingOf(positionKey(poolID, holder)), nil
}

func (m *MemoryAdapter) StakedBalance(poolID types.PoolID, holder string) (sdkmath.Int, error) {
	return m.position(positionKey(poolID, holder)), nil
}

func (m *MemoryAdapter) DepositFeeBips(types.PoolID) (uint64, error) {
	return m.depositFeeBips, nil
}

func (m *MemoryAdapter) WithdrawFeeBips(types.PoolID) (uint64, error) {
	return m.withdrawFeeBips, nil
}

func (m *MemoryAdapter) FeeDenominator() (uint64, error) {
	return m.feeDenominator, nil
}

// AccrueReward adds unclaimed pool-native reward to a position. Sim mode and
// tests drive reward accrual through this.
func (m *MemoryAdapter) AccrueReward(poolID types.PoolID, holder string, amount sdkmath.Int) {
	key := positionKey(poolID, holder)
	m.pending[key] = m.pendingOf(key).Add(amount)
}

func (m *MemoryAdapter) position(key string) sdkmath.Int {
	if position, ok := m.staked[key]; ok {
		return position
	}
	return sdkmath.ZeroInt()
}

func (m *MemoryAdapter) pendingOf(key string) sdkmath.Int {
	if pending, ok := m.pending[key]; ok {
		return pending
	}
	return sdkmath.ZeroInt()
}

// Snapshot implements types.Snapshotter.
func (m *MemoryAdapter) Snapshot() int {
	m.snapshots = append(m.snapshots, memorySnapshot{
		staked:  copyPositions(m.staked),
		pending: copyPositions(m.pending),
	})
	return len(m.snapshots) - 1
}

// RevertTo implements types.Snapshotter.
func (m *MemoryAdapter) RevertTo(id int) error {
	if id < 0 || id >= len(m.snapshots) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, id)
	}
	snap := m.snapshots[id]
	m.staked = snap.staked
	m.pending = snap.pending
	m.snapshots = m.snapshots[:id]
	return nil
}

// Release implements types.Snapshotter.
func (m *MemoryAdapter) Release(id int) error {
	if id < 0 || id >= len(m.snapshots) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, id)
	}
	m.snapshots = m.snapshots[:id]
	return nil
}

func copyPositions(src map[string]sdkmath.Int) map[string]sdkmath.Int {
	dst := make(map[string]sdkmath.Int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
