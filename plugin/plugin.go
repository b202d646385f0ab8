// Package plugin provides an extensible plugin system for the billing engine.
// Plugins can hook into lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/reading"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, ledger any) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Customer lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomerCreated is called when a new customer is created.
type OnCustomerCreated interface {
	Plugin
	OnCustomerCreated(ctx context.Context, c *customer.Customer) error
}

// OnCustomerUpdated is called when a customer record is replaced.
type OnCustomerUpdated interface {
	Plugin
	OnCustomerUpdated(ctx context.Context, c *customer.Customer) error
}

// OnCustomerDeleted is called when a customer and its bills are removed.
type OnCustomerDeleted interface {
	Plugin
	OnCustomerDeleted(ctx context.Context, customerID string, billsRemoved int64) error
}

// ──────────────────────────────────────────────────
// Bill lifecycle hooks
// ──────────────────────────────────────────────────

// OnBillCreated is called when a bill is created, whether derived from a
// reading or entered directly by an administrator.
type OnBillCreated interface {
	Plugin
	OnBillCreated(ctx context.Context, b *bill.Bill) error
}

// OnBillApproved is called when a bill is approved.
type OnBillApproved interface {
	Plugin
	OnBillApproved(ctx context.Context, b *bill.Bill) error
}

// OnBillPaid is called when a bill reaches Paid, by payment or manual
// settlement.
type OnBillPaid interface {
	Plugin
	OnBillPaid(ctx context.Context, b *bill.Bill) error
}

// OnPaymentFailed is called when a payment attempt is declined or the
// bill is ineligible.
type OnPaymentFailed interface {
	Plugin
	OnPaymentFailed(ctx context.Context, billID string, reason string) error
}

// ──────────────────────────────────────────────────
// Meter reading hooks
// ──────────────────────────────────────────────────

// OnReadingRejected is called when a submitted reading fails validation.
type OnReadingRejected interface {
	Plugin
	OnReadingRejected(ctx context.Context, accountNumber string, newReading int64, reason string) error
}

// OnBulkProcessed is called after a bulk reading batch completes.
type OnBulkProcessed interface {
	Plugin
	OnBulkProcessed(ctx context.Context, result *reading.BulkResult) error
}

// ──────────────────────────────────────────────────
// Notification hooks
// ──────────────────────────────────────────────────

// OnReminderSent is called after each successfully dispatched payment
// reminder.
type OnReminderSent interface {
	Plugin
	OnReminderSent(ctx context.Context, b *bill.Bill, phone string) error
}
