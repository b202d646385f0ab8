// Package audithook bridges engine lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/plugin"
	"github.com/dee-mee/aquatrack/reading"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnCustomerCreated = (*Extension)(nil)
	_ plugin.OnCustomerUpdated = (*Extension)(nil)
	_ plugin.OnCustomerDeleted = (*Extension)(nil)
	_ plugin.OnBillCreated     = (*Extension)(nil)
	_ plugin.OnBillApproved    = (*Extension)(nil)
	_ plugin.OnBillPaid        = (*Extension)(nil)
	_ plugin.OnPaymentFailed   = (*Extension)(nil)
	_ plugin.OnReadingRejected = (*Extension)(nil)
	_ plugin.OnBulkProcessed   = (*Extension)(nil)
	_ plugin.OnReminderSent    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges engine lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Customer lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomerCreated implements plugin.OnCustomerCreated.
func (e *Extension) OnCustomerCreated(ctx context.Context, c *customer.Customer) error {
	return e.record(ctx, ActionCustomerCreated, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, c.ID.String(), CategoryBilling, nil,
		"account_number", c.AccountNumber,
		"meter_number", c.MeterNumber,
	)
}

// OnCustomerUpdated implements plugin.OnCustomerUpdated.
func (e *Extension) OnCustomerUpdated(ctx context.Context, c *customer.Customer) error {
	return e.record(ctx, ActionCustomerUpdated, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, c.ID.String(), CategoryBilling, nil,
		"account_number", c.AccountNumber,
	)
}

// OnCustomerDeleted implements plugin.OnCustomerDeleted.
func (e *Extension) OnCustomerDeleted(ctx context.Context, customerID string, billsRemoved int64) error {
	return e.record(ctx, ActionCustomerDeleted, SeverityWarning, OutcomeSuccess,
		ResourceCustomer, customerID, CategoryBilling, nil,
		"bills_removed", billsRemoved,
	)
}

// ──────────────────────────────────────────────────
// Bill lifecycle hooks
// ──────────────────────────────────────────────────

// OnBillCreated implements plugin.OnBillCreated.
func (e *Extension) OnBillCreated(ctx context.Context, b *bill.Bill) error {
	return e.record(ctx, ActionBillCreated, SeverityInfo, OutcomeSuccess,
		ResourceBill, b.ID.String(), CategoryBilling, nil,
		"customer_id", b.CustomerID.String(),
		"period", b.Period,
		"consumption", b.Consumption,
		"amount_due", b.AmountDue.String(),
	)
}

// OnBillApproved implements plugin.OnBillApproved.
func (e *Extension) OnBillApproved(ctx context.Context, b *bill.Bill) error {
	return e.record(ctx, ActionBillApproved, SeverityInfo, OutcomeSuccess,
		ResourceBill, b.ID.String(), CategoryBilling, nil,
		"customer_id", b.CustomerID.String(),
		"amount_due", b.AmountDue.String(),
	)
}

// OnBillPaid implements plugin.OnBillPaid.
func (e *Extension) OnBillPaid(ctx context.Context, b *bill.Bill) error {
	return e.record(ctx, ActionBillPaid, SeverityInfo, OutcomeSuccess,
		ResourceBill, b.ID.String(), CategoryPayment, nil,
		"customer_id", b.CustomerID.String(),
		"payment_ref", b.PaymentRef,
		"amount", b.AmountDue.String(),
	)
}

// OnPaymentFailed implements plugin.OnPaymentFailed.
func (e *Extension) OnPaymentFailed(ctx context.Context, billID, reason string) error {
	return e.record(ctx, ActionPaymentFailed, SeverityWarning, OutcomeFailure,
		ResourceBill, billID, CategoryPayment, nil,
		"failure_reason", reason,
	)
}

// ──────────────────────────────────────────────────
// Meter reading hooks
// ──────────────────────────────────────────────────

// OnReadingRejected implements plugin.OnReadingRejected.
func (e *Extension) OnReadingRejected(ctx context.Context, accountNumber string, newReading int64, reason string) error {
	return e.record(ctx, ActionReadingRejected, SeverityWarning, OutcomeFailure,
		ResourceReading, accountNumber, CategoryMetering, nil,
		"new_reading", newReading,
		"rejection_reason", reason,
	)
}

// OnBulkProcessed implements plugin.OnBulkProcessed.
func (e *Extension) OnBulkProcessed(ctx context.Context, result *reading.BulkResult) error {
	outcome := OutcomeSuccess
	if result.ErrorCount > 0 {
		outcome = OutcomePartial
		if result.SuccessCount == 0 {
			outcome = OutcomeFailure
		}
	}
	return e.record(ctx, ActionBulkProcessed, SeverityInfo, outcome,
		ResourceReading, "", CategoryMetering, nil,
		"succeeded", result.SuccessCount,
		"failed", result.ErrorCount,
	)
}

// ──────────────────────────────────────────────────
// Notification hooks
// ──────────────────────────────────────────────────

// OnReminderSent implements plugin.OnReminderSent.
func (e *Extension) OnReminderSent(ctx context.Context, b *bill.Bill, phone string) error {
	return e.record(ctx, ActionReminderSent, SeverityInfo, OutcomeSuccess,
		ResourceReminder, b.ID.String(), CategoryNotification, nil,
		"phone", phone,
		"period", b.Period,
		"amount_due", b.AmountDue.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audithook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
