/*

This file contains the reward pipeline: estimation (checkReward), the public
reinvest entry point with its caller restriction and threshold, and the
harvest -> convert -> fee -> re-stake sequence itself.

*/

package vault

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/acv/internal/types"
)

// CheckReward estimates the total outstanding reward in reward-asset terms:
// unclaimed pool accrual plus pool-native tokens already held, quoted through
// the venue, plus any reward asset sitting in the vault. Pure read, safe to
// call any number of times.
func (v *Vault) CheckReward() (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.checkReward()
}

func (v *Vault) checkReward() (sdkmath.Int, error) {
	pending, err := v.pool.PendingRewardEstimate(v.poolID, v.address)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("pending reward query failed: %w", err)
	}
	poolTokenAmount := pending.Add(v.bank.BalanceOf(v.address, v.poolRewardAsset.Denom))

	estimated := sdkmath.ZeroInt()
	if poolTokenAmount.IsPositive() {
		estimated, err = v.converter.EstimateConversion(poolTokenAmount, v.poolRewardAsset.Denom, v.rewardAsset.Denom)
		if err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("reward conversion estimate failed: %w", err)
		}
	}
	return estimated.Add(v.bank.BalanceOf(v.address, v.rewardAsset.Denom)), nil
}

// ReinvestOutcome reports what one compound moved, for callers that persist
// or meter cycle history.
type ReinvestOutcome struct {
	Gross     sdkmath.Int
	DevFee    sdkmath.Int
	AdminFee  sdkmath.Int
	CallerFee sdkmath.Int
	Restaked  sdkmath.Int
	EventID   string
}

// Reinvest harvests and compounds the outstanding reward. Only a direct
// externally-owned caller may invoke it: an intermediary execution context
// could re-enter and extract the caller reward repeatedly within one call.
// The caller earns the reinvest reward fee for paying the execution cost.
func (v *Vault) Reinvest(caller types.Caller) (ReinvestOutcome, error) {
	if !caller.Direct {
		return ReinvestOutcome{}, fmt.Errorf("%w: reinvest requires a direct externally-owned caller", ErrPermission)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	estimated, err := v.checkReward()
	if err != nil {
		return ReinvestOutcome{}, err
	}
	if estimated.LT(v.params.MinTokensToReinvest) {
		return ReinvestOutcome{}, fmt.Errorf("%w: estimated %s, minimum %s",
			ErrBelowThreshold, estimated, v.params.MinTokensToReinvest)
	}

	var outcome ReinvestOutcome
	err = v.atomically(func() error {
		outcome, err = v.reinvest(caller.Address)
		return err
	})
	return outcome, err
}

// reinvest runs the compound sequence in fixed order: harvest, convert,
// disburse fees (dev, admin, caller), convert the net remainder to the
// deposit asset and re-stake it, then record the accounting event. Callers
// wrap it in atomically so a failure at any step leaves nothing applied.
func (v *Vault) reinvest(callerAddress string) (ReinvestOutcome, error) {
	if err := v.pool.HarvestRewards(v.poolID); err != nil {
		return ReinvestOutcome{}, fmt.Errorf("harvest failed: %w", err)
	}

	poolTokenBalance := v.bank.BalanceOf(v.address, v.poolRewardAsset.Denom)
	if poolTokenBalance.IsPositive() && v.poolRewardAsset.Denom != v.rewardAsset.Denom {
		if _, err := v.converter.Swap(poolTokenBalance, v.poolRewardAsset.Denom, v.rewardAsset.Denom); err != nil {
			return ReinvestOutcome{}, fmt.Errorf("reward conversion failed: %w", err)
		}
	}

	gross := v.bank.BalanceOf(v.address, v.rewardAsset.Denom)

	// Fee order is fixed: dev, then admin, then the caller reward. Zero fees
	// skip the transfer entirely.
	devFee := gross.MulRaw(int64(v.params.DevFeeBips)).QuoRaw(types.BipsDivisor)
	if devFee.IsPositive() {
		if err := v.bank.Transfer(v.address, v.devFeeAddress, v.rewardAsset.Denom, devFee); err != nil {
			return ReinvestOutcome{}, fmt.Errorf("%w: dev fee: %w", ErrTransfer, err)
		}
	}
	adminFee := gross.MulRaw(int64(v.params.AdminFeeBips)).QuoRaw(types.BipsDivisor)
	if adminFee.IsPositive() {
		if err := v.bank.Transfer(v.address, v.adminFeeAddress, v.rewardAsset.Denom, adminFee); err != nil {
			return ReinvestOutcome{}, fmt.Errorf("%w: admin fee: %w", ErrTransfer, err)
		}
	}
	callerFee := gross.MulRaw(int64(v.params.ReinvestRewardBips)).QuoRaw(types.BipsDivisor)
	if callerFee.IsPositive() && callerAddress != "" {
		if err := v.bank.Transfer(v.address, callerAddress, v.rewardAsset.Denom, callerFee); err != nil {
			return ReinvestOutcome{}, fmt.Errorf("%w: caller reward: %w", ErrTransfer, err)
		}
	}

	restake := sdkmath.ZeroInt()
	net := gross.Sub(devFee).Sub(adminFee).Sub(callerFee)
	if net.IsPositive() {
		restake = net
		if v.rewardAsset.Denom != v.depositAsset.Denom {
			received, err := v.converter.Swap(net, v.rewardAsset.Denom, v.depositAsset.Denom)
			if err != nil {
				return ReinvestOutcome{}, fmt.Errorf("deposit-asset conversion failed: %w", err)
			}
			restake = received
		}
		if restake.IsPositive() {
			if err := v.pool.Stake(v.poolID, restake); err != nil {
				return ReinvestOutcome{}, fmt.Errorf("re-stake failed: %w", err)
			}
		}
	}

	totalDeposits, err := v.TotalDeposits()
	if err != nil {
		return ReinvestOutcome{}, fmt.Errorf("post-reinvest deposit query failed: %w", err)
	}
	totalShares := v.shares.TotalSupply()

	eventID := v.recordEvent(types.Event{
		Type:          types.EventReinvest,
		Amount:        gross,
		TotalDeposits: totalDeposits,
		TotalShares:   totalShares,
	})
	v.logger.Info().
		Str("gross", gross.String()).
		Str("devFee", devFee.String()).
		Str("adminFee", adminFee.String()).
		Str("callerFee", callerFee.String()).
		Str("totalDeposits", totalDeposits.String()).
		Msg("Reinvest completed")
	return ReinvestOutcome{
		Gross:     gross,
		DevFee:    devFee,
		AdminFee:  adminFee,
		CallerFee: callerFee,
		Restaked:  restake,
		EventID:   eventID,
	}, nil
}
