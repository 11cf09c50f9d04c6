/*

This file contains the remote pool-family adapter. Farm-style pool nodes
expose a JSON-RPC surface (farm_stake, farm_unstake, farm_pending, ...); the
adapter wraps that surface behind the Adapter interface with strict response
validation, so the vault core never sees wire-level detail.

*/

package staking

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/acv/internal/logger"
	"github.com/stakeworks/acv/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrRPCRequestFailed = errors.New("RPC request failed")
	ErrInvalidResponse  = errors.New("response data is invalid")
	ErrInvalidEndpoint  = errors.New("endpoint is invalid")
)

var farmLogger = logger.GetForComponent("farm_adapter")

// farmRPCRequest defines the structure of a JSON-RPC request to the farm node.
type farmRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  farmCallParams `json:"params"`
}

// farmCallParams carries the arguments every farm method accepts.
type farmCallParams struct {
	PoolID  uint64 `json:"pool_id"`
	Account string `json:"account,omitempty"`
	Amount  string `json:"amount,omitempty"` // base-10 integer string
}

// farmRPCResponse defines the structure of a JSON-RPC response from the farm node.
type farmRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *farmRPCError   `json:"error,omitempty"`
}

type farmRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// farmAmountResult is the result shape for amount-returning queries.
type farmAmountResult struct {
	Amount string `json:"amount"`
}

// farmFeeResult is the result shape for fee-rate queries.
type farmFeeResult struct {
	Bips uint64 `json:"bips"`
}

// FarmAdapter implements Adapter against a remote farm-family pool node.
type FarmAdapter struct {
	endpoint string
	account  string
	client   *http.Client
	nextID   int
}

// NewFarmAdapter creates a remote pool adapter for the given staking account.
func NewFarmAdapter(endpoint, account string) (*FarmAdapter, error) {
	if endpoint == "" {
		return nil, errors.Join(ErrInvalidEndpoint, errors.New("endpoint cannot be empty"))
	}
	if account == "" {
		return nil, errors.New("staking account cannot be empty")
	}
	adapter := &FarmAdapter{
		endpoint: endpoint,
		account:  account,
		client:   &http.Client{Timeout: 15 * time.Second},
		nextID:   1,
	}
	farmLogger.Info().Str("endpoint", endpoint).Str("account", account).
		Msg("FarmAdapter initialized")
	return adapter, nil
}

// call performs one JSON-RPC round trip and returns the raw result payload.
func (f *FarmAdapter) call(method string, params farmCallParams) (json.RawMessage, error) {
	reqBody := farmRPCRequest{
		JSONRPC: "2.0",
		ID:      f.nextID,
		Method:  method,
		Params:  params,
	}
	f.nextID++

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	httpResp, err := f.client.Post(f.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Join(ErrRPCRequestFailed, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrRPCRequestFailed, method, httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var resp farmRPCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Join(ErrInvalidResponse, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s (code %d)", ErrRPCRequestFailed, method, resp.Error.Message, resp.Error.Code)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("%w: %s returned empty result", ErrInvalidResponse, method)
	}
	return resp.Result, nil
}

// callForAmount performs a query whose result carries a single integer amount.
func (f *FarmAdapter) callForAmount(method string, params farmCallParams) (sdkmath.Int, error) {
	raw, err := f.call(method, params)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	var result farmAmountResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidResponse, err)
	}
	amount, ok := sdkmath.NewIntFromString(result.Amount)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s returned non-integer amount %q", ErrInvalidResponse, method, result.Amount)
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s returned negative amount %s", ErrInvalidResponse, method, amount)
	}
	return amount, nil
}

// callForFee performs a query whose result carries a basis-point rate.
func (f *FarmAdapter) callForFee(method string, params farmCallParams) (uint64, error) {
	raw, err := f.call(method, params)
	if err != nil {
		return 0, err
	}
	var result farmFeeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, errors.Join(ErrInvalidResponse, err)
	}
	return result.Bips, nil
}

func (f *FarmAdapter) Stake(poolID types.PoolID, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrZeroAmount
	}
	_, err := f.call("farm_stake", farmCallParams{PoolID: uint64(poolID), Account: f.account, Amount: amount.String()})
	if err != nil {
		return fmt.Errorf("stake of %s into pool %d failed: %w", amount, poolID, err)
	}
	farmLogger.Debug().Uint64("poolID", uint64(poolID)).Str("amount", amount.String()).Msg("Stake broadcast")
	return nil
}

func (f *FarmAdapter) Unstake(poolID types.PoolID, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrZeroAmount
	}
	position, err := f.StakedBalance(poolID, f.account)
	if err != nil {
		return err
	}
	if position.LT(amount) {
		return fmt.Errorf("%w: position %s, requested %s", ErrInsufficientStake, position, amount)
	}
	_, err = f.call("farm_unstake", farmCallParams{PoolID: uint64(poolID), Account: f.account, Amount: amount.String()})
	if err != nil {
		return fmt.Errorf("unstake of %s from pool %d failed: %w", amount, poolID, err)
	}
	farmLogger.Debug().Uint64("poolID", uint64(poolID)).Str("amount", amount.String()).Msg("Unstake broadcast")
	return nil
}

func (f *FarmAdapter) EmergencyUnstake(poolID types.PoolID) error {
	_, err := f.call("farm_emergency_unstake", farmCallParams{PoolID: uint64(poolID), Account: f.account})
	if err != nil {
		return fmt.Errorf("emergency unstake from pool %d failed: %w", poolID, err)
	}
	farmLogger.Warn().Uint64("poolID", uint64(poolID)).Msg("Emergency unstake broadcast")
	return nil
}

func (f *FarmAdapter) HarvestRewards(poolID types.PoolID) error {
	_, err := f.call("farm_harvest", farmCallParams{PoolID: uint64(poolID), Account: f.account})
	if err != nil {
		return fmt.Errorf("harvest on pool %d failed: %w", poolID, err)
	}
	return nil
}

func (f *FarmAdapter) PendingRewardEstimate(poolID types.PoolID, holder string) (sdkmath.Int, error) {
	return f.callForAmount("farm_pending_reward", farmCallParams{PoolID: uint64(poolID), Account: holder})
}

func (f *FarmAdapter) StakedBalance(poolID types.PoolID, holder string) (sdkmath.Int, error) {
	return f.callForAmount("farm_staked_balance", farmCallParams{PoolID: uint64(poolID), Account: holder})
}

func (f *FarmAdapter) DepositFeeBips(poolID types.PoolID) (uint64, error) {
	return f.callForFee("farm_deposit_fee", farmCallParams{PoolID: uint64(poolID)})
}

func (f *FarmAdapter) WithdrawFeeBips(poolID types.PoolID) (uint64, error) {
	return f.callForFee("farm_withdraw_fee", farmCallParams{PoolID: uint64(poolID)})
}

func (f *FarmAdapter) FeeDenominator() (uint64, error) {
	raw, err := f.call("farm_fee_denominator", farmCallParams{})
	if err != nil {
		return 0, err
	}
	var result struct {
		Denominator uint64 `json:"denominator"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, errors.Join(ErrInvalidResponse, err)
	}
	if result.Denominator == 0 || result.Denominator > math.MaxInt64 {
		return 0, fmt.Errorf("%w: fee denominator %d is out of range", ErrInvalidResponse, result.Denominator)
	}
	return result.Denominator, nil
}
