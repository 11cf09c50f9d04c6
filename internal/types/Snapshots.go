/*

This file contains the compound-cycle snapshot types. One snapshot is written
per engine cycle so the full history of compounding activity survives restarts
and can be replayed on the dashboard.

*/

package types

import (
	"time"
)

// CompoundSnapshot captures one engine cycle end to end.
type CompoundSnapshot struct {
	SnapshotID  int64     `json:"snapshot_id,omitempty"` // Auto-incremented by DB
	CycleNumber int       `json:"cycle_number"`
	Timestamp   time.Time `json:"timestamp"`
	ParamsID    *int64    `json:"params_id,omitempty"` // Active parameter set during the cycle

	// Pre-reinvest state (string-encoded sdkmath.Int, base units)
	InitialDeposits string `json:"initial_deposits"`
	InitialShares   string `json:"initial_shares"`

	// Reward pipeline
	EstimatedReward string `json:"estimated_reward"` // checkReward() result
	GrossReward     string `json:"gross_reward"`     // reward asset after harvest+convert, zero if skipped
	DevFee          string `json:"dev_fee"`
	AdminFee        string `json:"admin_fee"`
	CallerFee       string `json:"caller_fee"`
	NetRestaked     string `json:"net_restaked"`

	// Post-reinvest state
	FinalDeposits string `json:"final_deposits"`
	FinalShares   string `json:"final_shares"`

	Reinvested   bool     `json:"reinvested"` // false when below threshold, nothing moved
	ErrorMessage string   `json:"error_message,omitempty"`
	EventIDs     []string `json:"event_ids,omitempty"` // Events recorded during the cycle
	DurationMS   int64    `json:"duration_ms"`
}
