// Package bill defines the bill entity and its approval/payment state machine.
package bill

import (
	"time"

	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/types"
)

// Status is the bill lifecycle state.
//
// Legal transitions:
//
//	PendingApproval → Unpaid        (approval)
//	Unpaid          → Overdue       (time-based promotion)
//	Unpaid, Overdue → Paid          (payment or manual settlement, approved bills only)
//
// Paid is terminal. Administrative edits may bypass these rules through
// Ledger.UpdateBill; that path is an explicit trapdoor, not part of the
// state machine.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusUnpaid          Status = "unpaid"
	StatusPaid            Status = "paid"
	StatusOverdue         Status = "overdue"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusUnpaid, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// Bill is a charge derived from a meter reading pair. Consumption and
// AmountDue always equal the derivation formulas at creation time:
//
//	Consumption = CurrentReading - PreviousReading
//	AmountDue   = Rate * Consumption
//
// A bill cannot reach StatusPaid unless Approved is true.
type Bill struct {
	types.Entity
	ID              id.BillID     `json:"id"`
	CustomerID      id.CustomerID `json:"customer_id"`
	Period          string        `json:"period"` // free-text label, e.g. "August 2024"
	PreviousReading int64         `json:"previous_reading"`
	CurrentReading  int64         `json:"current_reading"`
	Consumption     int64         `json:"consumption"` // cubic meters
	Rate            types.Money   `json:"rate"`        // per cubic meter
	AmountDue       types.Money   `json:"amount_due"`
	DueDate         time.Time     `json:"due_date"`
	Status          Status        `json:"status"`
	Approved        bool          `json:"approved"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	PaymentRef      string        `json:"payment_ref,omitempty"`
}

// Derive computes Consumption and AmountDue from the reading pair and rate.
func (b *Bill) Derive() {
	b.Consumption = b.CurrentReading - b.PreviousReading
	b.AmountDue = b.Rate.Multiply(b.Consumption)
}

// Approve marks the bill approved. A pending bill advances to Unpaid; any
// other status is left unchanged, so re-approval is idempotent.
func (b *Bill) Approve() {
	b.Approved = true
	if b.Status == StatusPendingApproval {
		b.Status = StatusUnpaid
	}
}

// EligibleForPayment reports whether a payment or manual settlement may
// succeed: the bill must be approved and not already paid.
func (b *Bill) EligibleForPayment() bool {
	return b.Approved && b.Status != StatusPaid
}

// MarkPaid transitions the bill to Paid. Returns false without mutating
// when the bill is not eligible — an expected business outcome, not a fault.
func (b *Bill) MarkPaid(at time.Time, paymentRef string) bool {
	if !b.EligibleForPayment() {
		return false
	}
	b.Status = StatusPaid
	b.PaidAt = &at
	b.PaymentRef = paymentRef
	return true
}

// MarkOverdue promotes an unpaid bill past its due date to Overdue.
// Returns false when the bill is not in Unpaid or the due date has not passed.
func (b *Bill) MarkOverdue(now time.Time) bool {
	if b.Status != StatusUnpaid || now.Before(b.DueDate) {
		return false
	}
	b.Status = StatusOverdue
	return true
}

// AwaitingPayment reports whether the bill counts toward outstanding
// balances: approved and in Unpaid or Overdue.
func (b *Bill) AwaitingPayment() bool {
	return b.Approved && (b.Status == StatusUnpaid || b.Status == StatusOverdue)
}

// WithCustomer is a bill joined with denormalized customer identity,
// used by administrative listings.
type WithCustomer struct {
	Bill
	CustomerName          string `json:"customer_name"`
	CustomerAccountNumber string `json:"customer_account_number"`
}

// ListOpts controls bill listing.
type ListOpts struct {
	Status Status // empty matches all
	Limit  int
	Offset int
}
