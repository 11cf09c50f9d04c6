package engine

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakeworks/acv/internal/ledger"
	"github.com/stakeworks/acv/internal/staking"
	"github.com/stakeworks/acv/internal/swap"
	"github.com/stakeworks/acv/internal/types"
	"github.com/stakeworks/acv/internal/vault"
)

const (
	testVaultAddress = "acv1vault"
	testOwner        = "acv1owner"
	testOperator     = "acv1operator"
	testPoolEscrow   = "acv1poolescrow"
	testVenueEscrow  = "acv1venueescrow"
	testDepositor    = "acv1alice"

	testPoolID = types.PoolID(1)
)

// simRig is a vault wired to in-process collaborators, the same shape sim mode
// runs with.
type simRig struct {
	bank  *ledger.MemoryBank
	pool  *staking.MemoryAdapter
	vault *vault.Vault
}

func newSimRig(t *testing.T) *simRig {
	t.Helper()

	bank := ledger.NewMemoryBank()
	pool, err := staking.NewMemoryAdapter(staking.MemoryAdapterConfig{
		Bank:            bank,
		Account:         testVaultAddress,
		Escrow:          testPoolEscrow,
		DepositDenom:    "ujoe",
		PoolRewardDenom: "upng",
	})
	require.NoError(t, err)

	converter, err := swap.NewMemoryConverter(bank, testVaultAddress, testVenueEscrow, 100)
	require.NoError(t, err)
	require.NoError(t, converter.SetPrice("upng", "uwavax", 1, 1))
	require.NoError(t, converter.SetPrice("uwavax", "ujoe", 1, 1))

	v, err := vault.NewVault(vault.Config{
		Address:         testVaultAddress,
		Owner:           testOwner,
		DepositAsset:    types.Asset{Symbol: "joe", Denom: "ujoe", Precision: 6},
		RewardAsset:     types.Asset{Symbol: "wavax", Denom: "uwavax", Precision: 6},
		PoolRewardAsset: types.Asset{Symbol: "png", Denom: "upng", Precision: 6},
		PoolID:          testPoolID,
		AdminFeeAddress: "acv1adminfees",
		DevFeeAddress:   "acv1devfees",
		PoolSpender:     testPoolEscrow,
		SwapSpender:     testVenueEscrow,
		Params: types.VaultParameters{
			MinTokensToReinvest:               sdkmath.NewInt(100),
			MaxTokensToDepositWithoutReinvest: sdkmath.ZeroInt(),
			AdminFeeBips:                      200,
			DevFeeBips:                        300,
			ReinvestRewardBips:                100,
			DepositsEnabled:                   true,
		},
		Shares:    ledger.NewMemoryLedger(),
		Bank:      bank,
		Pool:      pool,
		Converter: converter,
		Recorder:  &types.MemoryRecorder{},
	})
	require.NoError(t, err)

	return &simRig{bank: bank, pool: pool, vault: v}
}

func (r *simRig) deposit(t *testing.T, amount int64) {
	t.Helper()
	require.NoError(t, r.bank.Mint(testDepositor, "ujoe", sdkmath.NewInt(amount)))
	require.NoError(t, r.bank.Approve(testDepositor, testVaultAddress, "ujoe", sdkmath.NewInt(amount)))
	require.NoError(t, r.vault.Deposit(types.DirectCaller(testDepositor), sdkmath.NewInt(amount)))
}

func (r *simRig) staked(t *testing.T) sdkmath.Int {
	t.Helper()
	staked, err := r.vault.TotalDeposits()
	require.NoError(t, err)
	return staked
}

func newTestEngine(t *testing.T, v *vault.Vault) *Engine {
	t.Helper()
	e, err := NewEngine(Config{
		Vault:          v,
		Operator:       testOperator,
		Schedule:       "@every 15m",
		AssetPrecision: 6,
		ConfigName:     DEFAULT_PARAMS_CONFIG_NAME,
		ConfigVersion:  DEFAULT_PARAMS_CONFIG_VERSION,
	})
	require.NoError(t, err)
	return e
}

func TestNewEngineValidation(t *testing.T) {
	rig := newSimRig(t)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"nil vault", Config{Operator: testOperator, Schedule: "@every 15m", ConfigName: "x", ConfigVersion: 1}},
		{"empty operator", Config{Vault: rig.vault, Schedule: "@every 15m", ConfigName: "x", ConfigVersion: 1}},
		{"empty schedule", Config{Vault: rig.vault, Operator: testOperator, ConfigName: "x", ConfigVersion: 1}},
		{"empty config name", Config{Vault: rig.vault, Operator: testOperator, Schedule: "@every 15m", ConfigVersion: 1}},
		{"zero config version", Config{Vault: rig.vault, Operator: testOperator, Schedule: "@every 15m", ConfigName: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngine(tc.cfg)
			require.Error(t, err)
		})
	}
}

func TestRunCycleCompoundsOutstandingReward(t *testing.T) {
	rig := newSimRig(t)
	rig.deposit(t, 10_000)
	rig.pool.AccrueReward(testPoolID, testVaultAddress, sdkmath.NewInt(10_000))
	e := newTestEngine(t, rig.vault)

	e.RunCycle(context.Background())

	// 10000 gross, 300 dev + 200 admin + 100 caller in fees, 9400 restaked.
	assert.Equal(t, sdkmath.NewInt(19_400), rig.staked(t))
	assert.Equal(t, sdkmath.NewInt(100), rig.bank.BalanceOf(testOperator, "uwavax"), "the operator collects the caller reward")

	pending, err := rig.pool.PendingRewardEstimate(testPoolID, testVaultAddress)
	require.NoError(t, err)
	assert.True(t, pending.IsZero())
}

func TestRunCycleBelowThresholdLeavesStateUntouched(t *testing.T) {
	rig := newSimRig(t)
	rig.deposit(t, 10_000)
	rig.pool.AccrueReward(testPoolID, testVaultAddress, sdkmath.NewInt(50))
	e := newTestEngine(t, rig.vault)

	e.RunCycle(context.Background())

	assert.Equal(t, sdkmath.NewInt(10_000), rig.staked(t))
	pending, err := rig.pool.PendingRewardEstimate(testPoolID, testVaultAddress)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(50), pending, "below the threshold nothing is harvested")
}

func TestRunCycleRespectsCancelledContext(t *testing.T) {
	rig := newSimRig(t)
	rig.deposit(t, 10_000)
	rig.pool.AccrueReward(testPoolID, testVaultAddress, sdkmath.NewInt(10_000))
	e := newTestEngine(t, rig.vault)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.RunCycle(ctx)

	assert.Equal(t, sdkmath.NewInt(10_000), rig.staked(t), "a cancelled cycle performs no work")
}

func TestRunCycleRepeats(t *testing.T) {
	rig := newSimRig(t)
	rig.deposit(t, 10_000)
	e := newTestEngine(t, rig.vault)

	// An empty cycle, a compounding cycle, then another empty one: the loop
	// keeps its cadence regardless of what each cycle finds.
	e.RunCycle(context.Background())
	assert.Equal(t, sdkmath.NewInt(10_000), rig.staked(t))

	rig.pool.AccrueReward(testPoolID, testVaultAddress, sdkmath.NewInt(1_000))
	e.RunCycle(context.Background())
	assert.Equal(t, sdkmath.NewInt(10_940), rig.staked(t))

	e.RunCycle(context.Background())
	assert.Equal(t, sdkmath.NewInt(10_940), rig.staked(t))
}
