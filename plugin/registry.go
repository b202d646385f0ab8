package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/reading"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit            []OnInit
	onShutdown        []OnShutdown
	onCustomerCreated []OnCustomerCreated
	onCustomerUpdated []OnCustomerUpdated
	onCustomerDeleted []OnCustomerDeleted
	onBillCreated     []OnBillCreated
	onBillApproved    []OnBillApproved
	onBillPaid        []OnBillPaid
	onPaymentFailed   []OnPaymentFailed
	onReadingRejected []OnReadingRejected
	onBulkProcessed   []OnBulkProcessed
	onReminderSent    []OnReminderSent
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCustomerCreated); ok {
		r.onCustomerCreated = append(r.onCustomerCreated, v)
	}
	if v, ok := p.(OnCustomerUpdated); ok {
		r.onCustomerUpdated = append(r.onCustomerUpdated, v)
	}
	if v, ok := p.(OnCustomerDeleted); ok {
		r.onCustomerDeleted = append(r.onCustomerDeleted, v)
	}
	if v, ok := p.(OnBillCreated); ok {
		r.onBillCreated = append(r.onBillCreated, v)
	}
	if v, ok := p.(OnBillApproved); ok {
		r.onBillApproved = append(r.onBillApproved, v)
	}
	if v, ok := p.(OnBillPaid); ok {
		r.onBillPaid = append(r.onBillPaid, v)
	}
	if v, ok := p.(OnPaymentFailed); ok {
		r.onPaymentFailed = append(r.onPaymentFailed, v)
	}
	if v, ok := p.(OnReadingRejected); ok {
		r.onReadingRejected = append(r.onReadingRejected, v)
	}
	if v, ok := p.(OnBulkProcessed); ok {
		r.onBulkProcessed = append(r.onBulkProcessed, v)
	}
	if v, ok := p.(OnReminderSent); ok {
		r.onReminderSent = append(r.onReminderSent, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnCustomerCreated)(nil)).Elem(), "OnCustomerCreated")
	checkInterface(reflect.TypeOf((*OnCustomerUpdated)(nil)).Elem(), "OnCustomerUpdated")
	checkInterface(reflect.TypeOf((*OnCustomerDeleted)(nil)).Elem(), "OnCustomerDeleted")
	checkInterface(reflect.TypeOf((*OnBillCreated)(nil)).Elem(), "OnBillCreated")
	checkInterface(reflect.TypeOf((*OnBillApproved)(nil)).Elem(), "OnBillApproved")
	checkInterface(reflect.TypeOf((*OnBillPaid)(nil)).Elem(), "OnBillPaid")
	checkInterface(reflect.TypeOf((*OnPaymentFailed)(nil)).Elem(), "OnPaymentFailed")
	checkInterface(reflect.TypeOf((*OnReadingRejected)(nil)).Elem(), "OnReadingRejected")
	checkInterface(reflect.TypeOf((*OnBulkProcessed)(nil)).Elem(), "OnBulkProcessed")
	checkInterface(reflect.TypeOf((*OnReminderSent)(nil)).Elem(), "OnReminderSent")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCustomerCreated emits a customer created event.
func (r *Registry) EmitCustomerCreated(ctx context.Context, c *customer.Customer) {
	r.mu.RLock()
	plugins := r.onCustomerCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomerCreated(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnCustomerCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCustomerUpdated emits a customer updated event.
func (r *Registry) EmitCustomerUpdated(ctx context.Context, c *customer.Customer) {
	r.mu.RLock()
	plugins := r.onCustomerUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomerUpdated(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnCustomerUpdated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCustomerDeleted emits a customer deleted event.
func (r *Registry) EmitCustomerDeleted(ctx context.Context, customerID string, billsRemoved int64) {
	r.mu.RLock()
	plugins := r.onCustomerDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomerDeleted(ctx, customerID, billsRemoved)
		}); err != nil {
			r.logger.Warn("plugin OnCustomerDeleted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitBillCreated emits a bill created event.
func (r *Registry) EmitBillCreated(ctx context.Context, b *bill.Bill) {
	r.mu.RLock()
	plugins := r.onBillCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBillCreated(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBillCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitBillApproved emits a bill approved event.
func (r *Registry) EmitBillApproved(ctx context.Context, b *bill.Bill) {
	r.mu.RLock()
	plugins := r.onBillApproved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBillApproved(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBillApproved failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitBillPaid emits a bill paid event.
func (r *Registry) EmitBillPaid(ctx context.Context, b *bill.Bill) {
	r.mu.RLock()
	plugins := r.onBillPaid
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBillPaid(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBillPaid failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitPaymentFailed emits a payment failed event.
func (r *Registry) EmitPaymentFailed(ctx context.Context, billID, reason string) {
	r.mu.RLock()
	plugins := r.onPaymentFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentFailed(ctx, billID, reason)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentFailed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitReadingRejected emits a reading rejected event.
func (r *Registry) EmitReadingRejected(ctx context.Context, accountNumber string, newReading int64, reason string) {
	r.mu.RLock()
	plugins := r.onReadingRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReadingRejected(ctx, accountNumber, newReading, reason)
		}); err != nil {
			r.logger.Warn("plugin OnReadingRejected failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitBulkProcessed emits a bulk batch completed event.
func (r *Registry) EmitBulkProcessed(ctx context.Context, result *reading.BulkResult) {
	r.mu.RLock()
	plugins := r.onBulkProcessed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBulkProcessed(ctx, result)
		}); err != nil {
			r.logger.Warn("plugin OnBulkProcessed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitReminderSent emits a reminder sent event.
func (r *Registry) EmitReminderSent(ctx context.Context, b *bill.Bill, phone string) {
	r.mu.RLock()
	plugins := r.onReminderSent
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReminderSent(ctx, b, phone)
		}); err != nil {
			r.logger.Warn("plugin OnReminderSent failed", "plugin", p.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
