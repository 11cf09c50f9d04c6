package swap

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakeworks/acv/internal/ledger"
)

const (
	testVaultAccount = "vault"
	testVenueEscrow  = "venue-escrow"
)

func newTestConverter(t *testing.T, maxSlippageBips uint64) (*MemoryConverter, *ledger.MemoryBank) {
	t.Helper()
	bank := ledger.NewMemoryBank()
	converter, err := NewMemoryConverter(bank, testVaultAccount, testVenueEscrow, maxSlippageBips)
	require.NoError(t, err)
	return converter, bank
}

func TestMemoryConverterConfigValidation(t *testing.T) {
	bank := ledger.NewMemoryBank()

	_, err := NewMemoryConverter(nil, testVaultAccount, testVenueEscrow, 100)
	require.Error(t, err)

	_, err = NewMemoryConverter(bank, "", testVenueEscrow, 100)
	require.Error(t, err)

	_, err = NewMemoryConverter(bank, testVaultAccount, testVenueEscrow, 10_000)
	require.Error(t, err, "the slippage bound cannot swallow the whole quote")
}

func TestEstimateConversionSameDenomAndZero(t *testing.T) {
	converter, _ := newTestConverter(t, 100)

	quote, err := converter.EstimateConversion(sdkmath.NewInt(500), "ujoe", "ujoe")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(500), quote, "same-denom conversion is the identity")

	quote, err = converter.EstimateConversion(sdkmath.ZeroInt(), "upng", "ujoe")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.ZeroInt(), quote, "zero quotes zero even without a route")
}

func TestEstimateConversionUsesPairPrice(t *testing.T) {
	converter, _ := newTestConverter(t, 100)
	require.NoError(t, converter.SetPrice("upng", "ujoe", 3, 2))

	quote, err := converter.EstimateConversion(sdkmath.NewInt(1000), "upng", "ujoe")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1500), quote)

	// Floor division: 5 * 3 / 2 = 7.
	quote, err = converter.EstimateConversion(sdkmath.NewInt(5), "upng", "ujoe")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(7), quote)
}

func TestEstimateConversionUnknownPair(t *testing.T) {
	converter, _ := newTestConverter(t, 100)

	_, err := converter.EstimateConversion(sdkmath.NewInt(1000), "upng", "ujoe")
	require.ErrorIs(t, err, ErrUnknownPair)

	// Routes are directional.
	require.NoError(t, converter.SetPrice("upng", "ujoe", 1, 1))
	_, err = converter.EstimateConversion(sdkmath.NewInt(1000), "ujoe", "upng")
	require.ErrorIs(t, err, ErrUnknownPair)
}

func TestSetPriceValidation(t *testing.T) {
	converter, _ := newTestConverter(t, 100)

	require.ErrorIs(t, converter.SetPrice("upng", "ujoe", -1, 1), ErrInvalidPrice)
	require.ErrorIs(t, converter.SetPrice("upng", "ujoe", 1, 0), ErrInvalidPrice)
}

func TestSwapPullsInputAndDeliversOutput(t *testing.T) {
	converter, bank := newTestConverter(t, 100)
	require.NoError(t, converter.SetPrice("upng", "ujoe", 1, 1))
	require.NoError(t, bank.Mint(testVaultAccount, "upng", sdkmath.NewInt(1000)))
	require.NoError(t, bank.Approve(testVaultAccount, testVenueEscrow, "upng", sdkmath.NewInt(1000)))

	received, err := converter.Swap(sdkmath.NewInt(1000), "upng", "ujoe")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1000), received)
	assert.True(t, bank.BalanceOf(testVaultAccount, "upng").IsZero())
	assert.Equal(t, sdkmath.NewInt(1000), bank.BalanceOf(testVenueEscrow, "upng"))
	assert.Equal(t, sdkmath.NewInt(1000), bank.BalanceOf(testVaultAccount, "ujoe"))
}

func TestSwapRequiresAllowance(t *testing.T) {
	converter, bank := newTestConverter(t, 100)
	require.NoError(t, converter.SetPrice("upng", "ujoe", 1, 1))
	require.NoError(t, bank.Mint(testVaultAccount, "upng", sdkmath.NewInt(1000)))

	_, err := converter.Swap(sdkmath.NewInt(1000), "upng", "ujoe")
	require.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
}

func TestSwapToleratesShortfallWithinBound(t *testing.T) {
	converter, bank := newTestConverter(t, 100) // 1% bound
	require.NoError(t, converter.SetPrice("upng", "ujoe", 1, 1))
	require.NoError(t, bank.Mint(testVaultAccount, "upng", sdkmath.NewInt(10_000)))
	require.NoError(t, bank.Approve(testVaultAccount, testVenueEscrow, "upng", sdkmath.NewInt(10_000)))
	converter.SetExecutionCut(100)

	received, err := converter.Swap(sdkmath.NewInt(10_000), "upng", "ujoe")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(9_900), received)
}

func TestSwapRejectsExcessiveShortfall(t *testing.T) {
	converter, bank := newTestConverter(t, 100) // 1% bound
	require.NoError(t, converter.SetPrice("upng", "ujoe", 1, 1))
	require.NoError(t, bank.Mint(testVaultAccount, "upng", sdkmath.NewInt(10_000)))
	require.NoError(t, bank.Approve(testVaultAccount, testVenueEscrow, "upng", sdkmath.NewInt(10_000)))
	converter.SetExecutionCut(150)

	_, err := converter.Swap(sdkmath.NewInt(10_000), "upng", "ujoe")
	require.ErrorIs(t, err, ErrSlippage)
	assert.Equal(t, sdkmath.NewInt(10_000), bank.BalanceOf(testVaultAccount, "upng"), "a rejected swap moves nothing")
}

func TestSwapSameDenomSkipsVenue(t *testing.T) {
	converter, bank := newTestConverter(t, 100)
	require.NoError(t, bank.Mint(testVaultAccount, "ujoe", sdkmath.NewInt(500)))

	received, err := converter.Swap(sdkmath.NewInt(500), "ujoe", "ujoe")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(500), received)
	assert.Equal(t, sdkmath.NewInt(500), bank.BalanceOf(testVaultAccount, "ujoe"), "nothing is pulled on the identity path")
}
