/*

This file contains the remote asset bank. When the staking pool and swap
venue are real nodes, asset balances live on the node too: harvested rewards
and swap proceeds are credited there, not in this process. NodeBank wraps the
node's bank JSON-RPC surface (bank_balance, bank_transfer, ...) behind the
AssetBank interface with strict response validation.

*/

package ledger

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
)

// Error definitions for zero-tolerance error handling
var (
	ErrRPCRequestFailed = errors.New("RPC request failed")
	ErrInvalidResponse  = errors.New("response data is invalid")
	ErrInvalidEndpoint  = errors.New("endpoint is invalid")
	ErrMintUnsupported  = errors.New("remote bank cannot mint")
)

var bankLogger = logger.GetForComponent("node_bank")

// bankRPCRequest defines the structure of a JSON-RPC request to the bank node.
type bankRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  bankCallParams `json:"params"`
}

// bankCallParams carries the arguments every bank method accepts.
type bankCallParams struct {
	Account string `json:"account,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Spender string `json:"spender,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Denom   string `json:"denom,omitempty"`
	Amount  string `json:"amount,omitempty"` // base-10 integer string
}

// bankRPCResponse defines the structure of a JSON-RPC response from the bank node.
type bankRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *bankRPCError   `json:"error,omitempty"`
}

type bankRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// bankAmountResult is the result shape for amount-returning queries.
type bankAmountResult struct {
	Amount string `json:"amount"`
}

// NodeBank implements AssetBank against a remote node's bank module.
type NodeBank struct {
	endpoint string
	client   *http.Client
	nextID   int
}

// NewNodeBank creates a remote asset bank client.
func NewNodeBank(endpoint string) (*NodeBank, error) {
	if endpoint == "" {
		return nil, errors.Join(ErrInvalidEndpoint, errors.New("endpoint cannot be empty"))
	}
	bank := &NodeBank{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		nextID:   1,
	}
	bankLogger.Info().Str("endpoint", endpoint).Msg("NodeBank initialized")
	return bank, nil
}

// call performs one JSON-RPC round trip and returns the raw result payload.
func (n *NodeBank) call(method string, params bankCallParams) (json.RawMessage, error) {
	reqBody := bankRPCRequest{
		JSONRPC: "2.0",
		ID:      n.nextID,
		Method:  method,
		Params:  params,
	}
	n.nextID++

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	httpResp, err := n.client.Post(n.endpoint, "application/json", bytes.NewReader(payload))
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

	var resp bankRPCResponse
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
func (n *NodeBank) callForAmount(method string, params bankCallParams) (sdkmath.Int, error) {
	raw, err := n.call(method, params)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	var result bankAmountResult
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

func (n *NodeBank) Transfer(from, to, denom string, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	_, err := n.call("bank_transfer", bankCallParams{From: from, To: to, Denom: denom, Amount: amount.String()})
	if err != nil {
		return fmt.Errorf("transfer of %s %s failed: %w", amount, denom, err)
	}
	bankLogger.Debug().Str("from", from).Str("to", to).Str("denom", denom).
		Str("amount", amount.String()).Msg("Transfer broadcast")
	return nil
}

func (n *NodeBank) TransferFrom(spender, from, to, denom string, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	_, err := n.call("bank_transfer_from", bankCallParams{Spender: spender, From: from, To: to, Denom: denom, Amount: amount.String()})
	if err != nil {
		return fmt.Errorf("delegated transfer of %s %s failed: %w", amount, denom, err)
	}
	bankLogger.Debug().Str("spender", spender).Str("from", from).Str("to", to).
		Str("denom", denom).Str("amount", amount.String()).Msg("Delegated transfer broadcast")
	return nil
}

func (n *NodeBank) Approve(owner, spender, denom string, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	_, err := n.call("bank_approve", bankCallParams{Owner: owner, Spender: spender, Denom: denom, Amount: amount.String()})
	if err != nil {
		return fmt.Errorf("approval of %s %s failed: %w", amount, denom, err)
	}
	return nil
}

// Allowance returns the remaining allowance on the node. Read failures
// degrade to zero so share math never runs on a guessed figure.
func (n *NodeBank) Allowance(owner, spender, denom string) sdkmath.Int {
	amount, err := n.callForAmount("bank_allowance", bankCallParams{Owner: owner, Spender: spender, Denom: denom})
	if err != nil {
		bankLogger.Error().Err(err).Str("owner", owner).Str("spender", spender).
			Str("denom", denom).Msg("Allowance query failed, reporting zero")
		return sdkmath.ZeroInt()
	}
	return amount
}

// BalanceOf returns holder's node-side balance of denom. Read failures
// degrade to zero so share math never runs on a guessed figure.
func (n *NodeBank) BalanceOf(holder, denom string) sdkmath.Int {
	amount, err := n.callForAmount("bank_balance", bankCallParams{Account: holder, Denom: denom})
	if err != nil {
		bankLogger.Error().Err(err).Str("holder", holder).Str("denom", denom).
			Msg("Balance query failed, reporting zero")
		return sdkmath.ZeroInt()
	}
	return amount
}

// Mint always fails: issuance of real assets belongs to the chain, not to
// this client. Pool adapters that need to mint run against the in-process
// bank only.
func (n *NodeBank) Mint(holder, denom string, amount sdkmath.Int) error {
	return fmt.Errorf("%w: cannot mint %s %s to %s", ErrMintUnsupported, amount, denom, holder)
}
