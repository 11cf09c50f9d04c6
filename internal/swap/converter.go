/*

This file defines the reward-conversion boundary. The converter turns the
pool-native reward token into the vault's reward or deposit asset through a
liquidity venue; the vault only ever asks for a quote or an execution and
checks the result against the quote.

*/

package swap

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/acv/internal/ledger"
	"github.com/stakeworks/acv/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrSlippage     = errors.New("swap produced an implausible amount")
	ErrUnknownPair  = errors.New("no conversion route for asset pair")
	ErrInvalidPrice = errors.New("pair price is invalid")
)

// Converter quotes and executes conversions between two assets.
type Converter interface {
	// EstimateConversion returns a read-only quote for converting amount of
	// fromDenom into toDenom. A same-denom conversion quotes the amount back
	// unchanged.
	EstimateConversion(amount sdkmath.Int, fromDenom, toDenom string) (sdkmath.Int, error)

	// Swap executes the conversion and returns the amount actually received.
	// Fails with ErrSlippage when the received amount falls implausibly short
	// of the quote.
	Swap(amount sdkmath.Int, fromDenom, toDenom string) (sdkmath.Int, error)
}

// pairPrice expresses a venue price as an integer fraction: one unit of the
// from asset is worth Num/Den units of the to asset.
type pairPrice struct {
	Num sdkmath.Int
	Den sdkmath.Int
}

// MemoryConverter is the in-process venue used by sim mode and tests. Prices
// are a static fraction table; execution applies a configurable shortfall so
// tests can push results past the slippage bound.
type MemoryConverter struct {
	bank    ledger.AssetBank
	account string // the vault account swaps execute for
	escrow  string // the venue's own bank account

	prices           map[string]pairPrice
	maxSlippageBips  uint64
	executionCutBips uint64 // shortfall the venue applies to every execution
}

// NewMemoryConverter creates an in-process venue with no routes configured.
func NewMemoryConverter(bank ledger.AssetBank, account, escrow string, maxSlippageBips uint64) (*MemoryConverter, error) {
	if bank == nil {
		return nil, errors.New("bank cannot be nil")
	}
	if account == "" || escrow == "" {
		return nil, errors.New("account and escrow addresses are required")
	}
	if maxSlippageBips >= types.BipsDivisor {
		return nil, errors.New("slippage bound must be below the fee denominator")
	}
	return &MemoryConverter{
		bank:            bank,
		account:         account,
		escrow:          escrow,
		prices:          make(map[string]pairPrice),
		maxSlippageBips: maxSlippageBips,
	}, nil
}

func pairKey(fromDenom, toDenom string) string {
	return fromDenom + "->" + toDenom
}

// SetPrice registers the route fromDenom -> toDenom at num/den units of the
// target asset per unit of the source asset.
func (c *MemoryConverter) SetPrice(fromDenom, toDenom string, num, den int64) error {
	if num < 0 || den <= 0 {
		return ErrInvalidPrice
	}
	c.prices[pairKey(fromDenom, toDenom)] = pairPrice{
		Num: sdkmath.NewInt(num),
		Den: sdkmath.NewInt(den),
	}
	return nil
}

// SetExecutionCut makes every subsequent Swap deliver bips less than quoted.
// Tests use this to simulate venue slippage.
func (c *MemoryConverter) SetExecutionCut(bips uint64) {
	c.executionCutBips = bips
}

func (c *MemoryConverter) EstimateConversion(amount sdkmath.Int, fromDenom, toDenom string) (sdkmath.Int, error) {
	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.ZeroInt(), ledger.ErrInvalidAmount
	}
	if fromDenom == toDenom || amount.IsZero() {
		return amount, nil
	}
	price, ok := c.prices[pairKey(fromDenom, toDenom)]
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s -> %s", ErrUnknownPair, fromDenom, toDenom)
	}
	return amount.Mul(price.Num).Quo(price.Den), nil
}

func (c *MemoryConverter) Swap(amount sdkmath.Int, fromDenom, toDenom string) (sdkmath.Int, error) {
	quote, err := c.EstimateConversion(amount, fromDenom, toDenom)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if fromDenom == toDenom || amount.IsZero() {
		return amount, nil
	}

	received := quote.MulRaw(int64(types.BipsDivisor - c.executionCutBips)).QuoRaw(types.BipsDivisor)
	floor := quote.MulRaw(int64(types.BipsDivisor - c.maxSlippageBips)).QuoRaw(types.BipsDivisor)
	if received.LT(floor) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: quoted %s, received %s", ErrSlippage, quote, received)
	}

	// The venue pulls the input leg itself, so it only works once the vault
	// has granted it an allowance.
	if err := c.bank.TransferFrom(c.escrow, c.account, c.escrow, fromDenom, amount); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("venue could not pull input: %w", err)
	}
	if err := c.bank.Mint(c.account, toDenom, received); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("venue could not deliver output: %w", err)
	}
	return received, nil
}
