// Package observability provides a metrics extension that records engine
// lifecycle event counts through a caller-supplied MetricFactory.
package observability

import (
	"context"

	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/plugin"
	"github.com/dee-mee/aquatrack/reading"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnCustomerCreated = (*MetricsExtension)(nil)
	_ plugin.OnCustomerDeleted = (*MetricsExtension)(nil)
	_ plugin.OnBillCreated     = (*MetricsExtension)(nil)
	_ plugin.OnBillApproved    = (*MetricsExtension)(nil)
	_ plugin.OnBillPaid        = (*MetricsExtension)(nil)
	_ plugin.OnPaymentFailed   = (*MetricsExtension)(nil)
	_ plugin.OnReadingRejected = (*MetricsExtension)(nil)
	_ plugin.OnBulkProcessed   = (*MetricsExtension)(nil)
	_ plugin.OnReminderSent    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to automatically track billing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Customer metrics
	CustomerCreated Counter
	CustomerDeleted Counter
	BillsCascaded   Counter

	// Bill metrics
	BillCreated    Counter
	BillApproved   Counter
	BillPaid       Counter
	BillAmount     Histogram
	BillConsumed   Histogram
	PaymentFailed  Counter
	CollectedTotal Histogram

	// Reading metrics
	ReadingRejected Counter
	BulkRows        Histogram
	BulkErrorRate   Histogram

	// Notification metrics
	ReminderSent Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Customer metrics
		CustomerCreated: factory.Counter("aquatrack.customer.created"),
		CustomerDeleted: factory.Counter("aquatrack.customer.deleted"),
		BillsCascaded:   factory.Counter("aquatrack.customer.bills_cascaded"),

		// Bill metrics
		BillCreated:    factory.Counter("aquatrack.bill.created"),
		BillApproved:   factory.Counter("aquatrack.bill.approved"),
		BillPaid:       factory.Counter("aquatrack.bill.paid"),
		BillAmount:     factory.Histogram("aquatrack.bill.amount_cents"),
		BillConsumed:   factory.Histogram("aquatrack.bill.consumption_m3"),
		PaymentFailed:  factory.Counter("aquatrack.payment.failed"),
		CollectedTotal: factory.Histogram("aquatrack.payment.collected_cents"),

		// Reading metrics
		ReadingRejected: factory.Counter("aquatrack.reading.rejected"),
		BulkRows:        factory.Histogram("aquatrack.bulk.rows"),
		BulkErrorRate:   factory.Histogram("aquatrack.bulk.error_rate"),

		// Notification metrics
		ReminderSent: factory.Counter("aquatrack.reminder.sent"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Customer lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomerCreated implements plugin.OnCustomerCreated.
func (m *MetricsExtension) OnCustomerCreated(_ context.Context, _ *customer.Customer) error {
	m.CustomerCreated.Inc()
	return nil
}

// OnCustomerDeleted implements plugin.OnCustomerDeleted.
func (m *MetricsExtension) OnCustomerDeleted(_ context.Context, _ string, billsRemoved int64) error {
	m.CustomerDeleted.Inc()
	m.BillsCascaded.Add(float64(billsRemoved))
	return nil
}

// ──────────────────────────────────────────────────
// Bill lifecycle hooks
// ──────────────────────────────────────────────────

// OnBillCreated implements plugin.OnBillCreated.
func (m *MetricsExtension) OnBillCreated(_ context.Context, b *bill.Bill) error {
	m.BillCreated.Inc()
	m.BillAmount.Observe(float64(b.AmountDue.Amount))
	m.BillConsumed.Observe(float64(b.Consumption))
	return nil
}

// OnBillApproved implements plugin.OnBillApproved.
func (m *MetricsExtension) OnBillApproved(_ context.Context, _ *bill.Bill) error {
	m.BillApproved.Inc()
	return nil
}

// OnBillPaid implements plugin.OnBillPaid.
func (m *MetricsExtension) OnBillPaid(_ context.Context, b *bill.Bill) error {
	m.BillPaid.Inc()
	m.CollectedTotal.Observe(float64(b.AmountDue.Amount))
	return nil
}

// OnPaymentFailed implements plugin.OnPaymentFailed.
func (m *MetricsExtension) OnPaymentFailed(_ context.Context, _, _ string) error {
	m.PaymentFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Meter reading hooks
// ──────────────────────────────────────────────────

// OnReadingRejected implements plugin.OnReadingRejected.
func (m *MetricsExtension) OnReadingRejected(_ context.Context, _ string, _ int64, _ string) error {
	m.ReadingRejected.Inc()
	return nil
}

// OnBulkProcessed implements plugin.OnBulkProcessed.
func (m *MetricsExtension) OnBulkProcessed(_ context.Context, result *reading.BulkResult) error {
	total := result.SuccessCount + result.ErrorCount
	m.BulkRows.Observe(float64(total))
	if total > 0 {
		m.BulkErrorRate.Observe(float64(result.ErrorCount) / float64(total))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Notification hooks
// ──────────────────────────────────────────────────

// OnReminderSent implements plugin.OnReminderSent.
func (m *MetricsExtension) OnReminderSent(_ context.Context, _ *bill.Bill, _ string) error {
	m.ReminderSent.Inc()
	return nil
}
