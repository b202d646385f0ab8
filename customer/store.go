package customer

import (
	"context"

	"github.com/dee-mee/aquatrack/id"
)

// Store captures the persistence operations for customers.
type Store interface {
	Create(ctx context.Context, c *Customer) error
	Get(ctx context.Context, customerID id.CustomerID) (*Customer, error)
	GetByAccount(ctx context.Context, accountNumber string) (*Customer, error)
	List(ctx context.Context, opts ListOpts) ([]*Customer, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, c *Customer) error
	// Delete removes the customer and cascades to all of its bills,
	// returning the number of bills removed.
	Delete(ctx context.Context, customerID id.CustomerID) (int64, error)
}
