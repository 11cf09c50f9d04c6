/*

This file contains the share accounting: the conversion math between shares
and the underlying deposit asset, and the deposit/withdraw entry points.

All conversions use floor division so rounding always favors the vault: a
depositor receives slightly fewer shares and a withdrawer slightly fewer
assets than an infinitely precise exchange would give. Dust can therefore
never be used to mint value out of rounding.

*/

package vault

import (
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/acv/internal/types"
)

// poolFeeRate returns one of the pool's fee rates together with its
// denominator, both validated before they enter share math. The rates come
// from an external node: a rate above the denominator, or a denominator
// beyond int64, would wrap negative under MulRaw and turn a fee into a
// credit.
func (v *Vault) poolFeeRate(query func(types.PoolID) (uint64, error)) (uint64, uint64, error) {
	bips, err := query(v.poolID)
	if err != nil {
		return 0, 0, fmt.Errorf("could not query pool fee: %w", err)
	}
	denominator, err := v.pool.FeeDenominator()
	if err != nil {
		return 0, 0, fmt.Errorf("could not query pool fee denominator: %w", err)
	}
	if denominator == 0 || denominator > math.MaxInt64 {
		return 0, 0, fmt.Errorf("%w: fee denominator %d is out of range", ErrPoolFee, denominator)
	}
	if bips > denominator {
		return 0, 0, fmt.Errorf("%w: fee rate %d exceeds denominator %d", ErrPoolFee, bips, denominator)
	}
	return bips, denominator, nil
}

// TotalDeposits returns the vault's staked position in deposit-asset terms.
// The value is always queried live from the pool because it changes passively
// as the pool rebases or accrues penalties.
func (v *Vault) TotalDeposits() (sdkmath.Int, error) {
	return v.pool.StakedBalance(v.poolID, v.address)
}

// TotalShares returns the current share supply.
func (v *Vault) TotalShares() sdkmath.Int {
	return v.shares.TotalSupply()
}

// SharesOf returns account's share balance.
func (v *Vault) SharesOf(account string) sdkmath.Int {
	return v.shares.BalanceOf(account)
}

// SharesForAssets converts a deposit-asset amount into the shares it buys at
// the current share price, rounded down. The first depositor (or a deposit
// into an emptied vault) sets a 1:1 price.
func (v *Vault) SharesForAssets(assetAmount sdkmath.Int) (sdkmath.Int, error) {
	totalShares := v.shares.TotalSupply()
	totalDeposits, err := v.TotalDeposits()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if totalShares.IsZero() || totalDeposits.IsZero() {
		return assetAmount, nil
	}
	return assetAmount.Mul(totalShares).Quo(totalDeposits), nil
}

// AssetsForShares converts a share amount into the deposit-asset amount it
// redeems for at the current share price, rounded down. Zero while the vault
// holds no shares or no deposits.
func (v *Vault) AssetsForShares(shareAmount sdkmath.Int) (sdkmath.Int, error) {
	totalShares := v.shares.TotalSupply()
	totalDeposits, err := v.TotalDeposits()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if totalShares.IsZero() || totalDeposits.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return shareAmount.Mul(totalDeposits).Quo(totalShares), nil
}

// Deposit stakes the caller's assets and mints them shares.
func (v *Vault) Deposit(caller types.Caller, amount sdkmath.Int) error {
	return v.depositFor(caller, caller.Address, amount)
}

// DepositFor stakes the caller's assets and mints the shares to account.
func (v *Vault) DepositFor(caller types.Caller, account string, amount sdkmath.Int) error {
	if account == "" {
		return fmt.Errorf("%w: beneficiary account is required", ErrConfiguration)
	}
	return v.depositFor(caller, account, amount)
}

// depositFor pulls amount from payer's bank account, stakes it and mints the
// resulting shares to beneficiary. When the outstanding reward exceeds the
// force-reinvest threshold the vault compounds first, so the share price the
// mint is computed against already reflects the harvested value.
func (v *Vault) depositFor(payer types.Caller, beneficiary string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrZeroAmount
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.params.DepositsEnabled {
		return ErrDepositsDisabled
	}

	if !v.params.MaxTokensToDepositWithoutReinvest.IsZero() {
		estimated, err := v.checkReward()
		if err != nil {
			return fmt.Errorf("reward estimation before deposit failed: %w", err)
		}
		if estimated.GT(v.params.MaxTokensToDepositWithoutReinvest) {
			// The depositor triggered the compound, so the caller reward for
			// this harvest is theirs.
			err = v.atomically(func() error {
				_, reinvestErr := v.reinvest(payer.Address)
				return reinvestErr
			})
			if err != nil {
				return fmt.Errorf("forced reinvest before deposit failed: %w", err)
			}
		}
	}

	return v.atomically(func() error {
		depositFeeBips, feeDenominator, err := v.poolFeeRate(v.pool.DepositFeeBips)
		if err != nil {
			return err
		}

		// The pool's entry fee applies to the nominal incoming amount; shares
		// are minted only against what the pool will actually credit. Both
		// are computed against pre-stake totals, before any external call
		// can move them.
		depositFee := amount.MulRaw(int64(depositFeeBips)).QuoRaw(int64(feeDenominator))
		netAmount := amount.Sub(depositFee)
		mintShares, err := v.SharesForAssets(netAmount)
		if err != nil {
			return fmt.Errorf("share conversion failed: %w", err)
		}
		if !mintShares.IsPositive() {
			return fmt.Errorf("%w: deposit of %s mints no shares", ErrZeroAmount, amount)
		}

		if err := v.bank.TransferFrom(v.address, payer.Address, v.address, v.depositAsset.Denom, amount); err != nil {
			return fmt.Errorf("%w: %w", ErrTransfer, err)
		}
		if err := v.pool.Stake(v.poolID, amount); err != nil {
			return fmt.Errorf("stake failed: %w", err)
		}
		if err := v.shares.Mint(beneficiary, mintShares); err != nil {
			return fmt.Errorf("share mint failed: %w", err)
		}

		v.recordEvent(types.Event{
			Type:    types.EventDeposit,
			Account: beneficiary,
			Amount:  amount,
		})
		v.logger.Info().
			Str("account", beneficiary).
			Str("amount", amount.String()).
			Str("shares", mintShares.String()).
			Msg("Deposit accepted")
		return nil
	})
}

// Withdraw burns shareAmount of the caller's shares and returns the
// underlying assets, net of the pool's exit fee. A share amount that resolves
// to zero underlying is a silent no-op: nothing is burned for dust.
//
// Withdraw never triggers an opportunistic reinvest. A depositor must not buy
// in at a stale price, but an exiting holder has no reason to wait on an
// unrelated harvest.
func (v *Vault) Withdraw(caller types.Caller, shareAmount sdkmath.Int) error {
	if shareAmount.IsNil() || shareAmount.IsNegative() {
		return ErrZeroAmount
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	assetAmount, err := v.AssetsForShares(shareAmount)
	if err != nil {
		return fmt.Errorf("share conversion failed: %w", err)
	}
	if assetAmount.IsZero() {
		v.logger.Debug().
			Str("account", caller.Address).
			Str("shares", shareAmount.String()).
			Msg("Withdraw resolves to zero assets, skipping")
		return nil
	}

	return v.atomically(func() error {
		withdrawFeeBips, feeDenominator, err := v.poolFeeRate(v.pool.WithdrawFeeBips)
		if err != nil {
			return err
		}

		if err := v.pool.Unstake(v.poolID, assetAmount); err != nil {
			return fmt.Errorf("unstake failed: %w", err)
		}

		withdrawFee := assetAmount.MulRaw(int64(withdrawFeeBips)).QuoRaw(int64(feeDenominator))
		payout := assetAmount.Sub(withdrawFee)
		if payout.IsPositive() {
			if err := v.bank.Transfer(v.address, caller.Address, v.depositAsset.Denom, payout); err != nil {
				return fmt.Errorf("%w: %w", ErrTransfer, err)
			}
		}
		if err := v.shares.Burn(caller.Address, shareAmount); err != nil {
			return fmt.Errorf("share burn failed: %w", err)
		}

		v.recordEvent(types.Event{
			Type:    types.EventWithdraw,
			Account: caller.Address,
			Amount:  payout,
		})
		v.logger.Info().
			Str("account", caller.Address).
			Str("shares", shareAmount.String()).
			Str("payout", payout.String()).
			Msg("Withdraw completed")
		return nil
	})
}

// EstimateDeployedBalance returns the current staked position as reported by
// the pool. Zero-valued default when the pool cannot be reached.
func (v *Vault) EstimateDeployedBalance() sdkmath.Int {
	balance, err := v.TotalDeposits()
	if err != nil {
		v.logger.Error().Err(err).Msg("Failed to estimate deployed balance")
		return sdkmath.ZeroInt()
	}
	return balance
}
