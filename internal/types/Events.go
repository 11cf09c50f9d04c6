/*

This file contains the accounting event records the vault emits. Every external
operation that moves value produces exactly one event; the engine persists them
and the dashboard reads them back.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// EventType defines the accounting event kinds.
type EventType string

const (
	EventDeposit  EventType = "DEPOSIT"
	EventWithdraw EventType = "WITHDRAW"
	EventReinvest EventType = "REINVEST"
)

// Event is an immutable accounting log record.
type Event struct {
	ID        string      `json:"id"` // UUID assigned by the recorder
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Account   string      `json:"account,omitempty"` // depositor/withdrawer, empty for reinvest
	Amount    sdkmath.Int `json:"amount"`            // asset amount moved, zero for the baseline reinvest

	// Populated for REINVEST only: vault totals after compounding.
	TotalDeposits sdkmath.Int `json:"total_deposits,omitempty"`
	TotalShares   sdkmath.Int `json:"total_shares,omitempty"`
}

// Recorder receives accounting events. Implementations must not mutate vault
// state; recording failures are logged by the vault, never propagated.
type Recorder interface {
	Record(event Event) error
}

// MemoryRecorder keeps events in a slice. Sim mode and tests use it in place
// of the database-backed recorder.
type MemoryRecorder struct {
	Events []Event
}

func (r *MemoryRecorder) Record(event Event) error {
	r.Events = append(r.Events, event)
	return nil
}

// LastOfType returns the most recent event of the given type, nil if none.
func (r *MemoryRecorder) LastOfType(eventType EventType) *Event {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Type == eventType {
			return &r.Events[i]
		}
	}
	return nil
}
