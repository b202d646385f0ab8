package bill

import (
	"context"
	"time"

	"github.com/dee-mee/aquatrack/id"
)

// Store captures the persistence operations for bills.
type Store interface {
	Create(ctx context.Context, b *Bill) error
	Get(ctx context.Context, billID id.BillID) (*Bill, error)
	Update(ctx context.Context, b *Bill) error
	Delete(ctx context.Context, billID id.BillID) error
	// ListForCustomer returns the customer's bills ordered by due date descending.
	ListForCustomer(ctx context.Context, customerID id.CustomerID) ([]*Bill, error)
	// ListAll returns all bills joined with customer identity, ordered by
	// due date descending.
	ListAll(ctx context.Context, opts ListOpts) ([]*WithCustomer, error)
	// Approve sets approved and advances a pending bill to Unpaid.
	Approve(ctx context.Context, billID id.BillID) error
	// MarkPaid records a settlement on an eligible bill.
	MarkPaid(ctx context.Context, billID id.BillID, paidAt time.Time, paymentRef string) error
}
