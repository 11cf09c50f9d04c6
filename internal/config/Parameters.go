/*

This file contains the default parameters for the vault.

These values are used if no active parameter set is found in the database
during initialization. Each value has been chosen to keep compounding
profitable after fees and gas while protecting existing holders.

*/

package config

import (
	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/acv/internal/types"
)

// DefaultVaultParameters provides a baseline parameter set for the vault.
var DefaultVaultParameters = types.VaultParameters{
	MinTokensToReinvest: sdkmath.NewInt(1_000_000),
	// Rationale: compounding a reward below ~1 token burns more in swap fees
	// and caller reward than it adds to the share price. The threshold keeps
	// reinvest() unprofitable to spam and worthwhile to call.

	MaxTokensToDepositWithoutReinvest: sdkmath.NewInt(10_000_000),
	// Rationale: a deposit arriving while a large reward is outstanding would
	// mint shares against a stale price. Forcing a reinvest first keeps new
	// depositors from free-riding on unharvested yield. Zero disables the check.

	AdminFeeBips: 200,
	DevFeeBips:   300,
	// Rationale: 5% combined platform take, split so protocol development is
	// funded independently of vault operations.

	ReinvestRewardBips: 100,
	// Rationale: 1% of each harvest pays whoever calls reinvest(), which keeps
	// compounding permissionless without a trusted keeper.

	DepositsEnabled: true,
}
