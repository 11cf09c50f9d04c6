/*

This file defines the ledger capabilities the vault depends on. The fungible
share ledger and the asset bank are external collaborators from the vault's
point of view: the vault never stores balances itself, it only asks the
ledgers to move them.

*/

package ledger

import (
	"errors"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidAmount         = errors.New("amount is nil or negative")
	ErrInsufficientShares    = errors.New("share balance is insufficient")
	ErrInsufficientBalance   = errors.New("asset balance is insufficient")
	ErrInsufficientAllowance = errors.New("spender allowance is insufficient")
	ErrUnknownSnapshot       = errors.New("snapshot handle is unknown")
)

// ShareLedger is the fungible-share ledger the vault mints and burns against.
// The sum of all balances always equals TotalSupply.
type ShareLedger interface {
	// Mint credits newly created shares to holder.
	Mint(holder string, amount sdkmath.Int) error

	// Burn destroys shares held by holder. Fails with ErrInsufficientShares
	// if holder owns fewer shares than requested.
	Burn(holder string, amount sdkmath.Int) error

	// Transfer moves shares between holders.
	Transfer(from, to string, amount sdkmath.Int) error

	// BalanceOf returns the share balance of holder, zero if none.
	BalanceOf(holder string) sdkmath.Int

	// TotalSupply returns the outstanding share count.
	TotalSupply() sdkmath.Int
}

// AssetBank moves deposit, reward and pool-native assets between accounts.
type AssetBank interface {
	// Transfer moves amount of denom from one account to another.
	Transfer(from, to, denom string, amount sdkmath.Int) error

	// TransferFrom moves amount of denom out of from's account on the
	// authority of spender's allowance.
	TransferFrom(spender, from, to, denom string, amount sdkmath.Int) error

	// Approve lets spender move up to amount of denom out of owner's account.
	Approve(owner, spender, denom string, amount sdkmath.Int) error

	// Allowance returns the remaining amount spender may move for owner.
	Allowance(owner, spender, denom string) sdkmath.Int

	// BalanceOf returns holder's balance of denom, zero if none.
	BalanceOf(holder, denom string) sdkmath.Int

	// Mint credits freshly issued units of denom to holder. Pool adapters use
	// this to pay out harvested rewards.
	Mint(holder, denom string, amount sdkmath.Int) error
}

// checkAmount rejects nil and negative amounts before any balance math runs.
func checkAmount(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
