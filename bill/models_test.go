package bill_test

import (
	"testing"
	"time"

	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/types"
)

func newTestBill(status bill.Status, approved bool) *bill.Bill {
	b := &bill.Bill{
		Entity:          types.NewEntity(),
		ID:              id.NewBillID(),
		CustomerID:      id.NewCustomerID(),
		Period:          "August 2024",
		PreviousReading: 1200,
		CurrentReading:  1265,
		Rate:            types.KES(150),
		DueDate:         time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC),
		Status:          status,
		Approved:        approved,
	}
	b.Derive()
	return b
}

func TestDerive(t *testing.T) {
	b := newTestBill(bill.StatusPendingApproval, false)

	if b.Consumption != 65 {
		t.Errorf("expected consumption 65, got %d", b.Consumption)
	}
	if !b.AmountDue.Equal(types.KES(9750)) {
		t.Errorf("expected amount due KES 97.50, got %s", b.AmountDue)
	}
}

func TestApprove(t *testing.T) {
	tests := []struct {
		name       string
		status     bill.Status
		wantStatus bill.Status
	}{
		{"pending advances to unpaid", bill.StatusPendingApproval, bill.StatusUnpaid},
		{"unpaid unchanged", bill.StatusUnpaid, bill.StatusUnpaid},
		{"overdue unchanged", bill.StatusOverdue, bill.StatusOverdue},
		{"paid unchanged", bill.StatusPaid, bill.StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBill(tt.status, false)
			b.Approve()
			if !b.Approved {
				t.Error("expected approved = true")
			}
			if b.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, b.Status)
			}
		})
	}
}

func TestApproveIdempotent(t *testing.T) {
	b := newTestBill(bill.StatusPendingApproval, false)

	b.Approve()
	first := b.Status
	b.Approve()

	if !b.Approved {
		t.Error("expected approved = true after re-approval")
	}
	if b.Status != first || b.Status != bill.StatusUnpaid {
		t.Errorf("re-approval must not advance status again, got %q", b.Status)
	}
}

func TestMarkPaid(t *testing.T) {
	tests := []struct {
		name     string
		status   bill.Status
		approved bool
		want     bool
	}{
		{"approved unpaid succeeds", bill.StatusUnpaid, true, true},
		{"approved overdue succeeds", bill.StatusOverdue, true, true},
		{"unapproved unpaid fails", bill.StatusUnpaid, false, false},
		{"unapproved pending fails", bill.StatusPendingApproval, false, false},
		{"already paid fails", bill.StatusPaid, true, false},
	}

	paidAt := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBill(tt.status, tt.approved)
			got := b.MarkPaid(paidAt, "ref-123")

			if got != tt.want {
				t.Fatalf("MarkPaid = %v, want %v", got, tt.want)
			}
			if tt.want {
				if b.Status != bill.StatusPaid {
					t.Errorf("expected paid status, got %q", b.Status)
				}
				if b.PaidAt == nil || !b.PaidAt.Equal(paidAt) {
					t.Error("expected PaidAt to be recorded")
				}
				if b.PaymentRef != "ref-123" {
					t.Errorf("expected payment ref recorded, got %q", b.PaymentRef)
				}
			} else if b.Status != tt.status {
				t.Errorf("failed settlement must not mutate status: got %q, want %q", b.Status, tt.status)
			}
		})
	}
}

func TestMarkOverdue(t *testing.T) {
	due := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status bill.Status
		now    time.Time
		want   bool
	}{
		{"unpaid past due", bill.StatusUnpaid, due.AddDate(0, 0, 1), true},
		{"unpaid before due", bill.StatusUnpaid, due.AddDate(0, 0, -1), false},
		{"pending past due", bill.StatusPendingApproval, due.AddDate(0, 0, 1), false},
		{"paid past due", bill.StatusPaid, due.AddDate(0, 0, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBill(tt.status, true)
			if got := b.MarkOverdue(tt.now); got != tt.want {
				t.Fatalf("MarkOverdue = %v, want %v", got, tt.want)
			}
			if tt.want && b.Status != bill.StatusOverdue {
				t.Errorf("expected overdue status, got %q", b.Status)
			}
		})
	}
}

func TestAwaitingPayment(t *testing.T) {
	tests := []struct {
		name     string
		status   bill.Status
		approved bool
		want     bool
	}{
		{"approved unpaid", bill.StatusUnpaid, true, true},
		{"approved overdue", bill.StatusOverdue, true, true},
		{"unapproved unpaid", bill.StatusUnpaid, false, false},
		{"approved paid", bill.StatusPaid, true, false},
		{"pending", bill.StatusPendingApproval, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBill(tt.status, tt.approved)
			if got := b.AwaitingPayment(); got != tt.want {
				t.Errorf("AwaitingPayment = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []bill.Status{
		bill.StatusPendingApproval, bill.StatusUnpaid, bill.StatusPaid, bill.StatusOverdue,
	} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if bill.Status("voided").Valid() {
		t.Error("unknown status must not be valid")
	}
}
