// Package store defines the unified storage interface consumed by the
// billing engine. Backends live in the memory, sqlite, postgres, and
// mongo sub-packages.
package store

import (
	"context"
	"time"

	"github.com/dee-mee/aquatrack/account"
	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/metrics"
)

// Store is the unified storage interface for all AquaTrack entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Customer methods
	CreateCustomer(ctx context.Context, c *customer.Customer) error
	GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error)
	GetCustomerByAccount(ctx context.Context, accountNumber string) (*customer.Customer, error)
	ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error)
	CountCustomers(ctx context.Context) (int64, error)
	UpdateCustomer(ctx context.Context, c *customer.Customer) error
	// DeleteCustomer removes the customer and every bill attached to it,
	// returning the number of bills removed.
	DeleteCustomer(ctx context.Context, customerID id.CustomerID) (int64, error)

	// Bill methods
	CreateBill(ctx context.Context, b *bill.Bill) error
	GetBill(ctx context.Context, billID id.BillID) (*bill.Bill, error)
	ListBillsForCustomer(ctx context.Context, customerID id.CustomerID, opts bill.ListOpts) ([]*bill.Bill, error)
	ListAllBills(ctx context.Context, opts bill.ListOpts) ([]*bill.WithCustomer, error)
	UpdateBill(ctx context.Context, b *bill.Bill) error
	DeleteBill(ctx context.Context, billID id.BillID) error
	ApproveBill(ctx context.Context, billID id.BillID) (*bill.Bill, error)
	MarkBillPaid(ctx context.Context, billID id.BillID, paidAt time.Time, paymentRef string) (*bill.Bill, error)

	// User methods
	CreateUser(ctx context.Context, u *account.User) error
	GetUser(ctx context.Context, accountID id.AccountID) (*account.User, error)
	GetUserByEmail(ctx context.Context, email string) (*account.User, error)
	ListAdmins(ctx context.Context) ([]*account.User, error)
	UpdateUser(ctx context.Context, u *account.User) error
	DeleteUser(ctx context.Context, accountID id.AccountID) error

	// Metrics methods
	DashboardStats(ctx context.Context) (*metrics.DashboardStats, error)
	MeterMetrics(ctx context.Context) ([]*metrics.MeterMetric, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
