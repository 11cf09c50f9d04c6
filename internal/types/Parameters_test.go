package types

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() VaultParameters {
	return VaultParameters{
		MinTokensToReinvest:               sdkmath.NewInt(1_000_000),
		MaxTokensToDepositWithoutReinvest: sdkmath.ZeroInt(),
		AdminFeeBips:                      200,
		DevFeeBips:                        300,
		ReinvestRewardBips:                100,
		DepositsEnabled:                   true,
	}
}

func TestVaultParametersFeeSum(t *testing.T) {
	params := validParams()
	assert.Equal(t, uint64(600), params.FeeSum())

	params.AdminFeeBips = 0
	params.DevFeeBips = 0
	params.ReinvestRewardBips = 0
	assert.Equal(t, uint64(0), params.FeeSum())
}

func TestVaultParametersValidate(t *testing.T) {
	require.NoError(t, validParams().Validate())

	// The fee sum may reach the divisor exactly, never exceed it.
	params := validParams()
	params.AdminFeeBips = BipsDivisor - params.DevFeeBips - params.ReinvestRewardBips
	require.NoError(t, params.Validate())

	params.AdminFeeBips++
	require.ErrorIs(t, params.Validate(), ErrFeeSumTooHigh)
}

func TestVaultParametersValidateThresholds(t *testing.T) {
	params := validParams()
	params.MinTokensToReinvest = sdkmath.NewInt(-1)
	require.ErrorIs(t, params.Validate(), ErrInvalidThreshold)

	params = validParams()
	params.MinTokensToReinvest = sdkmath.Int{}
	require.ErrorIs(t, params.Validate(), ErrInvalidThreshold)

	params = validParams()
	params.MaxTokensToDepositWithoutReinvest = sdkmath.NewInt(-1)
	require.ErrorIs(t, params.Validate(), ErrInvalidThreshold)

	// Zero thresholds are legitimate: zero min compounds any reward, zero max
	// disables the deposit-triggered reinvest.
	params = validParams()
	params.MinTokensToReinvest = sdkmath.ZeroInt()
	require.NoError(t, params.Validate())
}
