/*

This is a custom type for assets which contains all the state needed for moving
value between the vault, the staking pool and the swap venue.

*/

package types

// Asset identifies a fungible asset handled by the vault.
type Asset struct {
	Symbol    string `json:"symbol"`    // e.g., "joe"
	Denom     string `json:"denom"`     // e.g., "ujoe", the unit the bank ledger keys on
	Precision int    `json:"precision"` // e.g., 6 = 1000000 base units per token
}

// PoolID is an opaque handle distinguishing one staking position among several
// managed by the same underlying staking contract.
type PoolID uint64

// Caller identifies the account invoking a vault operation.
// Direct is false when the call arrives through an intermediary execution
// context; reinvest rejects those callers.
type Caller struct {
	Address string `json:"address"`
	Direct  bool   `json:"direct"`
}

// DirectCaller returns a Caller acting as a plain externally-owned account.
func DirectCaller(address string) Caller {
	return Caller{Address: address, Direct: true}
}
