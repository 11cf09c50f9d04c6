package staking

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakeworks/acv/internal/ledger"
	"github.com/stakeworks/acv/internal/types"
)

const (
	testVaultAccount = "vault"
	testPoolEscrow   = "pool-escrow"
	testDenom        = "ujoe"
	testRewardDenom  = "upng"
	testPoolID       = types.PoolID(7)
)

func newTestAdapter(t *testing.T, depositFeeBips, withdrawFeeBips uint64) (*MemoryAdapter, *ledger.MemoryBank) {
	t.Helper()
	bank := ledger.NewMemoryBank()
	adapter, err := NewMemoryAdapter(MemoryAdapterConfig{
		Bank:            bank,
		Account:         testVaultAccount,
		Escrow:          testPoolEscrow,
		DepositDenom:    testDenom,
		PoolRewardDenom: testRewardDenom,
		DepositFeeBips:  depositFeeBips,
		WithdrawFeeBips: withdrawFeeBips,
	})
	require.NoError(t, err)
	return adapter, bank
}

func fund(t *testing.T, bank *ledger.MemoryBank, amount int64) {
	t.Helper()
	require.NoError(t, bank.Mint(testVaultAccount, testDenom, sdkmath.NewInt(amount)))
	require.NoError(t, bank.Approve(testVaultAccount, testPoolEscrow, testDenom, sdkmath.NewInt(amount)))
}

func TestMemoryAdapterConfigValidation(t *testing.T) {
	bank := ledger.NewMemoryBank()

	_, err := NewMemoryAdapter(MemoryAdapterConfig{})
	require.Error(t, err)

	_, err = NewMemoryAdapter(MemoryAdapterConfig{
		Bank:            bank,
		Account:         testVaultAccount,
		Escrow:          testPoolEscrow,
		DepositDenom:    testDenom,
		PoolRewardDenom: testRewardDenom,
		DepositFeeBips:  types.BipsDivisor,
	})
	require.Error(t, err, "a 100% entry fee is rejected")
}

func TestMemoryAdapterStakeRequiresAllowance(t *testing.T) {
	adapter, bank := newTestAdapter(t, 0, 0)
	require.NoError(t, bank.Mint(testVaultAccount, testDenom, sdkmath.NewInt(1000)))

	err := adapter.Stake(testPoolID, sdkmath.NewInt(1000))
	require.ErrorIs(t, err, ledger.ErrInsufficientAllowance)

	require.NoError(t, bank.Approve(testVaultAccount, testPoolEscrow, testDenom, sdkmath.NewInt(1000)))
	require.NoError(t, adapter.Stake(testPoolID, sdkmath.NewInt(1000)))
	assert.Equal(t, sdkmath.NewInt(1000), bank.BalanceOf(testPoolEscrow, testDenom))
}

func TestMemoryAdapterStakeTakesEntryFee(t *testing.T) {
	adapter, bank := newTestAdapter(t, 300, 0) // 3% entry fee
	fund(t, bank, 10_000)

	require.NoError(t, adapter.Stake(testPoolID, sdkmath.NewInt(10_000)))

	staked, err := adapter.StakedBalance(testPoolID, testVaultAccount)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(9_700), staked, "position is credited net of the entry fee")
	assert.Equal(t, sdkmath.NewInt(10_000), bank.BalanceOf(testPoolEscrow, testDenom), "escrow holds the full amount")
	assert.True(t, bank.BalanceOf(testVaultAccount, testDenom).IsZero())
}

func TestMemoryAdapterStakeRejectsZero(t *testing.T) {
	adapter, _ := newTestAdapter(t, 0, 0)

	require.ErrorIs(t, adapter.Stake(testPoolID, sdkmath.ZeroInt()), ErrZeroAmount)
	require.ErrorIs(t, adapter.Stake(testPoolID, sdkmath.Int{}), ErrZeroAmount)
	require.ErrorIs(t, adapter.Unstake(testPoolID, sdkmath.ZeroInt()), ErrZeroAmount)
}

func TestMemoryAdapterUnstakeTakesExitFee(t *testing.T) {
	adapter, bank := newTestAdapter(t, 0, 200) // 2% exit fee
	fund(t, bank, 10_000)
	require.NoError(t, adapter.Stake(testPoolID, sdkmath.NewInt(10_000)))

	require.NoError(t, adapter.Unstake(testPoolID, sdkmath.NewInt(5_000)))

	staked, err := adapter.StakedBalance(testPoolID, testVaultAccount)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(5_000), staked, "full amount leaves the position")
	assert.Equal(t, sdkmath.NewInt(4_900), bank.BalanceOf(testVaultAccount, testDenom), "vault receives the amount net of the exit fee")
}

func TestMemoryAdapterUnstakeBeyondPosition(t *testing.T) {
	adapter, bank := newTestAdapter(t, 0, 0)
	fund(t, bank, 1_000)
	require.NoError(t, adapter.Stake(testPoolID, sdkmath.NewInt(1_000)))

	err := adapter.Unstake(testPoolID, sdkmath.NewInt(1_001))
	require.ErrorIs(t, err, ErrInsufficientStake)
}

func TestMemoryAdapterHarvestMintsPending(t *testing.T) {
	adapter, bank := newTestAdapter(t, 0, 0)
	fund(t, bank, 1_000)
	require.NoError(t, adapter.Stake(testPoolID, sdkmath.NewInt(1_000)))

	adapter.AccrueReward(testPoolID, testVaultAccount, sdkmath.NewInt(250))
	pending, err := adapter.PendingRewardEstimate(testPoolID, testVaultAccount)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(250), pending)

	require.NoError(t, adapter.HarvestRewards(testPoolID))
	assert.Equal(t, sdkmath.NewInt(250), bank.BalanceOf(testVaultAccount, testRewardDenom))

	pending, err = adapter.PendingRewardEstimate(testPoolID, testVaultAccount)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.ZeroInt(), pending, "harvest drains the pending balance")

	// A second harvest with nothing pending is a no-op.
	require.NoError(t, adapter.HarvestRewards(testPoolID))
	assert.Equal(t, sdkmath.NewInt(250), bank.BalanceOf(testVaultAccount, testRewardDenom))
}

func TestMemoryAdapterEmergencyUnstakeForfeitsRewards(t *testing.T) {
	adapter, bank := newTestAdapter(t, 0, 100) // 1% exit fee
	fund(t, bank, 10_000)
	require.NoError(t, adapter.Stake(testPoolID, sdkmath.NewInt(10_000)))
	adapter.AccrueReward(testPoolID, testVaultAccount, sdkmath.NewInt(500))

	require.NoError(t, adapter.EmergencyUnstake(testPoolID))

	staked, err := adapter.StakedBalance(testPoolID, testVaultAccount)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.ZeroInt(), staked)
	assert.Equal(t, sdkmath.NewInt(9_900), bank.BalanceOf(testVaultAccount, testDenom))

	pending, err := adapter.PendingRewardEstimate(testPoolID, testVaultAccount)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.ZeroInt(), pending, "emergency exit forfeits unclaimed rewards")

	// With no position the emergency path is a no-op.
	require.NoError(t, adapter.EmergencyUnstake(testPoolID))
}

func TestMemoryAdapterFeeQueries(t *testing.T) {
	adapter, _ := newTestAdapter(t, 300, 50)

	depositFee, err := adapter.DepositFeeBips(testPoolID)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), depositFee)

	withdrawFee, err := adapter.WithdrawFeeBips(testPoolID)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), withdrawFee)

	denominator, err := adapter.FeeDenominator()
	require.NoError(t, err)
	assert.Equal(t, uint64(types.BipsDivisor), denominator)
}

func TestMemoryAdapterSnapshotRevert(t *testing.T) {
	adapter, bank := newTestAdapter(t, 0, 0)
	fund(t, bank, 2_000)
	require.NoError(t, adapter.Stake(testPoolID, sdkmath.NewInt(1_000)))
	adapter.AccrueReward(testPoolID, testVaultAccount, sdkmath.NewInt(100))

	id := adapter.Snapshot()
	require.NoError(t, adapter.Stake(testPoolID, sdkmath.NewInt(1_000)))
	adapter.AccrueReward(testPoolID, testVaultAccount, sdkmath.NewInt(400))

	require.NoError(t, adapter.RevertTo(id))

	staked, err := adapter.StakedBalance(testPoolID, testVaultAccount)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), staked)

	pending, err := adapter.PendingRewardEstimate(testPoolID, testVaultAccount)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100), pending)

	require.ErrorIs(t, adapter.RevertTo(id), ErrUnknownSnapshot)
}

func TestMemoryAdapterReleaseKeepsStateAndDropsHandle(t *testing.T) {
	adapter, bank := newTestAdapter(t, 0, 0)
	fund(t, bank, 2_000)

	id := adapter.Snapshot()
	require.NoError(t, adapter.Stake(testPoolID, sdkmath.NewInt(1_000)))

	require.NoError(t, adapter.Release(id))

	staked, err := adapter.StakedBalance(testPoolID, testVaultAccount)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), staked, "release keeps the staked position")

	require.ErrorIs(t, adapter.RevertTo(id), ErrUnknownSnapshot)
	assert.Equal(t, id, adapter.Snapshot())
}
