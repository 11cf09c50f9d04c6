/*

This file contains the remote swap venue client. Venue nodes expose a JSON-RPC
surface (venue_quote, venue_swap); the client validates every wire amount and
enforces the slippage bound locally against its own quote, never trusting the
venue's plausibility judgement.

*/

package swap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
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

var venueLogger = logger.GetForComponent("swap_venue")

type venueRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  venueSwapParams `json:"params"`
}

type venueSwapParams struct {
	Account   string `json:"account,omitempty"`
	FromDenom string `json:"from_denom"`
	ToDenom   string `json:"to_denom"`
	Amount    string `json:"amount"` // base-10 integer string
}

type venueRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *venueRPCError  `json:"error,omitempty"`
}

type venueRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type venueAmountResult struct {
	Amount string `json:"amount"`
}

// VenueClient implements Converter against a remote liquidity venue.
type VenueClient struct {
	endpoint        string
	account         string
	maxSlippageBips uint64
	client          *http.Client
	nextID          int
}

// NewVenueClient creates a remote venue client executing for the given account.
func NewVenueClient(endpoint, account string, maxSlippageBips uint64) (*VenueClient, error) {
	if endpoint == "" {
		return nil, errors.Join(ErrInvalidEndpoint, errors.New("endpoint cannot be empty"))
	}
	if account == "" {
		return nil, errors.New("swap account cannot be empty")
	}
	if maxSlippageBips >= types.BipsDivisor {
		return nil, errors.New("slippage bound must be below the fee denominator")
	}
	client := &VenueClient{
		endpoint:        endpoint,
		account:         account,
		maxSlippageBips: maxSlippageBips,
		client:          &http.Client{Timeout: 15 * time.Second},
		nextID:          1,
	}
	venueLogger.Info().Str("endpoint", endpoint).Uint64("maxSlippageBips", maxSlippageBips).
		Msg("VenueClient initialized")
	return client, nil
}

func (v *VenueClient) call(method string, params venueSwapParams) (sdkmath.Int, error) {
	reqBody := venueRPCRequest{
		JSONRPC: "2.0",
		ID:      v.nextID,
		Method:  method,
		Params:  params,
	}
	v.nextID++

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	httpResp, err := v.client.Post(v.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return sdkmath.ZeroInt(), errors.Join(ErrRPCRequestFailed, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s returned HTTP %d", ErrRPCRequestFailed, method, httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var resp venueRPCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidResponse, err)
	}
	if resp.Error != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s: %s (code %d)", ErrRPCRequestFailed, method, resp.Error.Message, resp.Error.Code)
	}

	var result venueAmountResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return sdkmath.ZeroInt(), errors.Join(ErrInvalidResponse, err)
	}
	amount, ok := sdkmath.NewIntFromString(result.Amount)
	if !ok || amount.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s returned amount %q", ErrInvalidResponse, method, result.Amount)
	}
	return amount, nil
}

func (v *VenueClient) EstimateConversion(amount sdkmath.Int, fromDenom, toDenom string) (sdkmath.Int, error) {
	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount is nil or negative", ErrInvalidResponse)
	}
	if fromDenom == toDenom || amount.IsZero() {
		return amount, nil
	}
	return v.call("venue_quote", venueSwapParams{
		FromDenom: fromDenom,
		ToDenom:   toDenom,
		Amount:    amount.String(),
	})
}

func (v *VenueClient) Swap(amount sdkmath.Int, fromDenom, toDenom string) (sdkmath.Int, error) {
	if fromDenom == toDenom || amount.IsZero() {
		return amount, nil
	}
	quote, err := v.EstimateConversion(amount, fromDenom, toDenom)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	received, err := v.call("venue_swap", venueSwapParams{
		Account:   v.account,
		FromDenom: fromDenom,
		ToDenom:   toDenom,
		Amount:    amount.String(),
	})
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	// The quote is taken immediately before execution; anything beyond the
	// configured shortfall means the venue moved against us or misbehaved.
	floor := quote.MulRaw(int64(types.BipsDivisor - v.maxSlippageBips)).QuoRaw(types.BipsDivisor)
	if received.LT(floor) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: quoted %s, received %s", ErrSlippage, quote, received)
	}

	venueLogger.Debug().
		Str("fromDenom", fromDenom).
		Str("toDenom", toDenom).
		Str("amountIn", amount.String()).
		Str("amountOut", received.String()).
		Msg("Swap executed")
	return received, nil
}
