// Package notify defines the manager-notification contract. Delivery
// transports are out of scope: events are queued for the worker, and a
// failed enqueue never fails the cash mutation that raised it.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Priority ranks how urgently managers should see an event.
type Priority string

const (
	// PriorityCritical marks large variances and every withdrawal.
	PriorityCritical Priority = "CRITICAL"
	// PriorityHigh marks variances over the threshold but under the critical cutoff.
	PriorityHigh Priority = "HIGH"
)

// Task types consumed by the worker.
const (
	TaskVarianceDetected = "notify:variance"
	TaskWithdrawalMade   = "notify:withdrawal"
)

// VarianceEvent is raised when a register closes with a variance above the
// outlet threshold.
type VarianceEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	OutletID   int64     `json:"outlet_id"`
	RegisterID int64     `json:"register_id"`
	Date       time.Time `json:"date"`
	Variance   float64   `json:"variance"`
	Reason     string    `json:"reason,omitempty"`
	Priority   Priority  `json:"priority"`
	Managers   []int64   `json:"managers"`
	ClosedBy   int64     `json:"closed_by"`
	At         time.Time `json:"at"`
}

// WithdrawalEvent is raised for every recorded cash withdrawal.
type WithdrawalEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	OutletID     int64     `json:"outlet_id"`
	RegisterID   int64     `json:"register_id"`
	Amount       float64   `json:"amount"`
	Purpose      string    `json:"purpose"`
	HandedTo     string    `json:"handed_to"`
	Priority     Priority  `json:"priority"`
	Managers     []int64   `json:"managers"`
	AuthorizedBy int64     `json:"authorized_by"`
	At           time.Time `json:"at"`
}
