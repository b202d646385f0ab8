package aquatrack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dee-mee/aquatrack/account"
	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/metrics"
	"github.com/dee-mee/aquatrack/notify"
	"github.com/dee-mee/aquatrack/payment"
	"github.com/dee-mee/aquatrack/plugin"
	"github.com/dee-mee/aquatrack/reading"
	"github.com/dee-mee/aquatrack/store"
	"github.com/dee-mee/aquatrack/types"
)

// Ledger is the main billing engine.
type Ledger struct {
	store     store.Store
	plugins   *plugin.Registry
	logger    *slog.Logger
	gateway   payment.Gateway
	messenger notify.Messenger

	// Background workers
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Configuration
	standardRate         types.Money
	dueIn                time.Duration
	bulkDueIn            time.Duration
	overdueSweepInterval time.Duration
	now                  func() time.Time
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:                s,
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		stopChan:             make(chan struct{}),
		standardRate:         types.KES(150), // KES 1.50 per cubic meter
		dueIn:                30 * 24 * time.Hour,
		bulkDueIn:            15 * 24 * time.Hour,
		overdueSweepInterval: time.Hour,
		now:                  time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.gateway == nil {
		l.gateway = payment.NewMobileMoney(l.logger)
	}
	if l.messenger == nil {
		l.messenger = notify.NewSMSLogger(l.logger)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithGateway sets the payment gateway.
func WithGateway(g payment.Gateway) Option {
	return func(l *Ledger) {
		l.gateway = g
	}
}

// WithMessenger sets the reminder messenger.
func WithMessenger(m notify.Messenger) Option {
	return func(l *Ledger) {
		l.messenger = m
	}
}

// WithStandardRate sets the default per-unit rate applied when a bill
// does not carry an explicit rate.
func WithStandardRate(rate types.Money) Option {
	return func(l *Ledger) {
		l.standardRate = rate
	}
}

// WithDueIn sets how long after creation a bill falls due.
func WithDueIn(d time.Duration) Option {
	return func(l *Ledger) {
		l.dueIn = d
	}
}

// WithBulkDueIn sets the due window for bills derived from bulk uploads.
func WithBulkDueIn(d time.Duration) Option {
	return func(l *Ledger) {
		l.bulkDueIn = d
	}
}

// WithOverdueSweepInterval sets how often the background sweep promotes
// past-due unpaid bills to Overdue.
func WithOverdueSweepInterval(d time.Duration) Option {
	return func(l *Ledger) {
		l.overdueSweepInterval = d
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Start begins background workers.
func (l *Ledger) Start(ctx context.Context) error {
	// Migrate database
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	l.plugins.EmitInit(ctx, l)

	// Start overdue sweep worker
	l.wg.Add(1)
	go l.overdueSweepWorker(ctx)

	l.logger.Info("aquatrack started",
		"standard_rate", l.standardRate.String(),
		"due_in", l.dueIn,
		"sweep_interval", l.overdueSweepInterval,
	)

	return nil
}

// Stop shuts down the Ledger. Safe to call more than once; only the
// first call closes the store.
func (l *Ledger) Stop() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()

		l.plugins.EmitShutdown(context.Background())

		err = l.store.Close()
	})
	return err
}

// Plugins exposes the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry {
	return l.plugins
}

// ──────────────────────────────────────────────────
// Customer Management
// ──────────────────────────────────────────────────

// CreateCustomer registers a new metered customer.
func (l *Ledger) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return ValidationError{Field: "name", Message: "must not be empty"}
	}
	if strings.TrimSpace(c.AccountNumber) == "" {
		return ValidationError{Field: "account_number", Message: "must not be empty"}
	}
	if strings.TrimSpace(c.MeterNumber) == "" {
		return ValidationError{Field: "meter_number", Message: "must not be empty"}
	}
	if c.LastReading < 0 {
		return ValidationError{Field: "last_reading", Message: "must not be negative"}
	}

	if c.ID.IsNil() {
		c.ID = id.NewCustomerID()
	}
	c.Entity = types.NewEntity()
	if c.LastReadingDate.IsZero() {
		c.LastReadingDate = l.now()
	}

	if err := l.store.CreateCustomer(ctx, c); err != nil {
		return err
	}

	l.plugins.EmitCustomerCreated(ctx, c)
	return nil
}

// GetCustomer retrieves a customer by ID.
func (l *Ledger) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	return l.store.GetCustomer(ctx, customerID)
}

// GetCustomerByAccount retrieves a customer by account number.
func (l *Ledger) GetCustomerByAccount(ctx context.Context, accountNumber string) (*customer.Customer, error) {
	return l.store.GetCustomerByAccount(ctx, accountNumber)
}

// ListCustomers lists customers ordered by account number.
func (l *Ledger) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	return l.store.ListCustomers(ctx, opts)
}

// UpdateCustomer replaces a customer record.
func (l *Ledger) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return ValidationError{Field: "name", Message: "must not be empty"}
	}

	c.Touch()
	if err := l.store.UpdateCustomer(ctx, c); err != nil {
		return err
	}

	l.plugins.EmitCustomerUpdated(ctx, c)
	return nil
}

// DeleteCustomer removes a customer and every bill attached to it,
// returning the number of bills removed.
func (l *Ledger) DeleteCustomer(ctx context.Context, customerID id.CustomerID) (int64, error) {
	removed, err := l.store.DeleteCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}

	l.logger.Info("customer deleted", "customer_id", customerID.String(), "bills_removed", removed)
	l.plugins.EmitCustomerDeleted(ctx, customerID.String(), removed)
	return removed, nil
}

// ──────────────────────────────────────────────────
// Bill Management
// ──────────────────────────────────────────────────

// AddBillInput is an administrative bill entry. Optional fields default
// from the customer record and engine configuration.
type AddBillInput struct {
	CustomerID      id.CustomerID
	Period          string // empty defaults to the current month, e.g. "August 2024"
	CurrentReading  int64
	PreviousReading *int64       // nil defaults to the customer's last reading
	Rate            *types.Money // nil defaults to the standard rate
	DueDate         time.Time    // zero defaults to now + due window
}

// AddBill creates a bill for a customer from a reading pair. The new bill
// starts in PendingApproval, and the customer's reading checkpoint advances
// when the bill's current reading moves past it.
func (l *Ledger) AddBill(ctx context.Context, in AddBillInput) (*bill.Bill, error) {
	c, err := l.store.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	previous := c.LastReading
	if in.PreviousReading != nil {
		previous = *in.PreviousReading
	}
	if in.CurrentReading <= previous {
		return nil, ValidationError{
			Field:   "current_reading",
			Message: fmt.Sprintf("must be greater than the previous reading (%d)", previous),
		}
	}

	rate := l.standardRate
	if in.Rate != nil {
		rate = *in.Rate
	}
	if !rate.IsPositive() {
		return nil, ValidationError{Field: "rate", Message: "must be positive"}
	}

	now := l.now()
	b := &bill.Bill{
		Entity:          types.NewEntity(),
		ID:              id.NewBillID(),
		CustomerID:      c.ID,
		Period:          in.Period,
		PreviousReading: previous,
		CurrentReading:  in.CurrentReading,
		Rate:            rate,
		DueDate:         in.DueDate,
		Status:          bill.StatusPendingApproval,
	}
	if b.Period == "" {
		b.Period = now.Format("January 2006")
	}
	if b.DueDate.IsZero() {
		b.DueDate = now.Add(l.dueIn)
	}
	b.Derive()

	if err := l.store.CreateBill(ctx, b); err != nil {
		return nil, err
	}

	if b.CurrentReading > c.LastReading {
		c.LastReading = b.CurrentReading
		c.LastReadingDate = now
		c.Touch()
		if err := l.store.UpdateCustomer(ctx, c); err != nil {
			return nil, fmt.Errorf("advance reading checkpoint: %w", err)
		}
	}

	l.plugins.EmitBillCreated(ctx, b)
	return b, nil
}

// GetBill retrieves a bill by ID.
func (l *Ledger) GetBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	return l.store.GetBill(ctx, billID)
}

// ListBillsForCustomer lists a customer's bills, newest due date first.
func (l *Ledger) ListBillsForCustomer(ctx context.Context, customerID id.CustomerID, opts bill.ListOpts) ([]*bill.Bill, error) {
	return l.store.ListBillsForCustomer(ctx, customerID, opts)
}

// ListAllBills lists every bill joined with customer identity, newest
// due date first.
func (l *Ledger) ListAllBills(ctx context.Context, opts bill.ListOpts) ([]*bill.WithCustomer, error) {
	return l.store.ListAllBills(ctx, opts)
}

// UpdateBill replaces a bill record wholesale. This is an administrative
// trapdoor that bypasses the status state machine; derived amounts are
// recomputed so the derivation law still holds.
func (l *Ledger) UpdateBill(ctx context.Context, b *bill.Bill) error {
	if !b.Status.Valid() {
		return ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", b.Status)}
	}

	b.Derive()
	b.Touch()
	if err := l.store.UpdateBill(ctx, b); err != nil {
		return err
	}

	l.logger.Warn("administrative bill edit",
		"bill_id", b.ID.String(),
		"status", string(b.Status),
		"approved", b.Approved,
	)
	return nil
}

// DeleteBill removes a bill.
func (l *Ledger) DeleteBill(ctx context.Context, billID id.BillID) error {
	return l.store.DeleteBill(ctx, billID)
}

// ApproveBill approves a bill. A pending bill advances to Unpaid;
// re-approving is a no-op.
func (l *Ledger) ApproveBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	b, err := l.store.ApproveBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	l.plugins.EmitBillApproved(ctx, b)
	return b, nil
}

// ──────────────────────────────────────────────────
// Meter Readings
// ──────────────────────────────────────────────────

// SubmitReading derives a bill from a customer's new meter reading. The
// reading must be strictly greater than the customer's checkpoint; the
// checkpoint advances only when the bill is created.
func (l *Ledger) SubmitReading(ctx context.Context, accountNumber string, newReading int64) (*bill.Bill, error) {
	c, err := l.store.GetCustomerByAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	if newReading <= c.LastReading {
		reason := fmt.Sprintf("New reading (%d) is not greater than the last reading (%d).", newReading, c.LastReading)
		l.plugins.EmitReadingRejected(ctx, accountNumber, newReading, reason)
		return nil, fmt.Errorf("%w: %s", ErrReadingNotMonotonic, reason)
	}

	now := l.now()
	b := &bill.Bill{
		Entity:          types.NewEntity(),
		ID:              id.NewBillID(),
		CustomerID:      c.ID,
		Period:          now.Format("January 2006"),
		PreviousReading: c.LastReading,
		CurrentReading:  newReading,
		Rate:            l.standardRate,
		DueDate:         now.Add(l.dueIn),
		Status:          bill.StatusPendingApproval,
	}
	b.Derive()

	if err := l.store.CreateBill(ctx, b); err != nil {
		return nil, err
	}

	c.LastReading = newReading
	c.LastReadingDate = now
	c.Touch()
	if err := l.store.UpdateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("advance reading checkpoint: %w", err)
	}

	l.logger.Info("reading accepted",
		"account_number", accountNumber,
		"consumption", b.Consumption,
		"amount_due", b.AmountDue.String(),
	)
	l.plugins.EmitBillCreated(ctx, b)
	return b, nil
}

// SubmitBulkReadings processes a batch of reading submissions best-effort:
// each row succeeds or fails on its own, and the batch never aborts. Bills
// derived here use the bulk due window.
func (l *Ledger) SubmitBulkReadings(ctx context.Context, subs []reading.Submission) (*reading.BulkResult, error) {
	result := &reading.BulkResult{}

	for _, sub := range subs {
		c, err := l.store.GetCustomerByAccount(ctx, sub.AccountNumber)
		if err != nil {
			reason := "Account number not found."
			result.AddError(sub.AccountNumber, reason)
			l.plugins.EmitReadingRejected(ctx, sub.AccountNumber, sub.NewReading, reason)
			continue
		}

		if sub.NewReading <= c.LastReading {
			reason := fmt.Sprintf("New reading (%d) is not greater than the last reading (%d).", sub.NewReading, c.LastReading)
			result.AddError(sub.AccountNumber, reason)
			l.plugins.EmitReadingRejected(ctx, sub.AccountNumber, sub.NewReading, reason)
			continue
		}

		now := l.now()
		b := &bill.Bill{
			Entity:          types.NewEntity(),
			ID:              id.NewBillID(),
			CustomerID:      c.ID,
			Period:          now.Format("January 2006"),
			PreviousReading: c.LastReading,
			CurrentReading:  sub.NewReading,
			Rate:            l.standardRate,
			DueDate:         now.Add(l.bulkDueIn),
			Status:          bill.StatusPendingApproval,
		}
		b.Derive()

		if err := l.store.CreateBill(ctx, b); err != nil {
			result.AddError(sub.AccountNumber, err.Error())
			continue
		}

		c.LastReading = sub.NewReading
		c.LastReadingDate = now
		c.Touch()
		if err := l.store.UpdateCustomer(ctx, c); err != nil {
			return result, fmt.Errorf("advance reading checkpoint: %w", err)
		}

		result.SuccessCount++
		l.plugins.EmitBillCreated(ctx, b)
	}

	l.logger.Info("bulk readings processed",
		"rows", len(subs),
		"succeeded", result.SuccessCount,
		"failed", result.ErrorCount,
	)
	l.plugins.EmitBulkProcessed(ctx, result)
	return result, nil
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

// PayBill charges a customer's wallet for a bill. A missing, unapproved,
// or already-paid bill and a declined charge are all expected business
// outcomes reported as false with a nil error; errors are reserved for
// infrastructure faults.
func (l *Ledger) PayBill(ctx context.Context, billID id.BillID, phone string) (bool, error) {
	b, err := l.store.GetBill(ctx, billID)
	if err != nil {
		if errors.Is(err, ErrBillNotFound) {
			l.plugins.EmitPaymentFailed(ctx, billID.String(), "bill not found")
			return false, nil
		}
		return false, err
	}

	if !b.EligibleForPayment() {
		reason := "bill not approved"
		if b.Status == bill.StatusPaid {
			reason = "bill already paid"
		}
		l.plugins.EmitPaymentFailed(ctx, billID.String(), reason)
		return false, nil
	}

	res, err := l.gateway.Charge(ctx, payment.Request{
		BillID:      b.ID.String(),
		Phone:       phone,
		Amount:      b.AmountDue,
		Description: "AquaTrack water bill, " + b.Period,
	})
	if err != nil {
		return false, fmt.Errorf("charge bill %s: %w", b.ID.String(), err)
	}
	if !res.Succeeded {
		l.logger.Info("payment declined", "bill_id", b.ID.String(), "reason", res.FailureReason)
		l.plugins.EmitPaymentFailed(ctx, b.ID.String(), res.FailureReason)
		return false, nil
	}

	paid, err := l.store.MarkBillPaid(ctx, b.ID, res.ProcessedAt, res.Reference)
	if err != nil {
		return false, err
	}

	l.plugins.EmitBillPaid(ctx, paid)
	return true, nil
}

// MarkBillPaid settles a bill manually, outside the payment gateway.
// Like PayBill, ineligible bills report false with a nil error.
func (l *Ledger) MarkBillPaid(ctx context.Context, billID id.BillID) (bool, error) {
	b, err := l.store.MarkBillPaid(ctx, billID, l.now(), "MANUAL")
	if err != nil {
		switch {
		case errors.Is(err, ErrBillNotFound):
			l.plugins.EmitPaymentFailed(ctx, billID.String(), "bill not found")
			return false, nil
		case errors.Is(err, ErrBillNotApproved):
			l.plugins.EmitPaymentFailed(ctx, billID.String(), "bill not approved")
			return false, nil
		case errors.Is(err, ErrBillAlreadyPaid):
			l.plugins.EmitPaymentFailed(ctx, billID.String(), "bill already paid")
			return false, nil
		}
		return false, err
	}

	l.plugins.EmitBillPaid(ctx, b)
	return true, nil
}

// MarkOverdueBills promotes unpaid bills past their due date to Overdue,
// returning how many were promoted.
func (l *Ledger) MarkOverdueBills(ctx context.Context) (int64, error) {
	unpaid, err := l.store.ListAllBills(ctx, bill.ListOpts{Status: bill.StatusUnpaid})
	if err != nil {
		return 0, err
	}

	now := l.now()
	var promoted int64
	for _, joined := range unpaid {
		b := joined.Bill
		if !b.MarkOverdue(now) {
			continue
		}
		b.Touch()
		if err := l.store.UpdateBill(ctx, &b); err != nil {
			return promoted, err
		}
		promoted++
	}

	if promoted > 0 {
		l.logger.Info("overdue sweep", "promoted", promoted)
	}
	return promoted, nil
}

// overdueSweepWorker periodically promotes past-due bills.
func (l *Ledger) overdueSweepWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.overdueSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ctx.Done():
			l.logger.Info("overdue sweep worker stopped")
			return
		case <-ticker.C:
			if _, err := l.MarkOverdueBills(ctx); err != nil {
				l.logger.Error("overdue sweep failed", "error", err)
			}
		}
	}
}

// ──────────────────────────────────────────────────
// Reminders
// ──────────────────────────────────────────────────

// ReminderResult aggregates a reminder dispatch run.
type ReminderResult struct {
	SentCount  int `json:"sent_count"`
	ErrorCount int `json:"error_count"`
}

// SendPaymentReminders messages every customer with an approved, unpaid
// bill. Dispatch is best-effort per bill; delivery failures are counted,
// not fatal.
func (l *Ledger) SendPaymentReminders(ctx context.Context) (*ReminderResult, error) {
	bills, err := l.store.ListAllBills(ctx, bill.ListOpts{})
	if err != nil {
		return nil, err
	}

	result := &ReminderResult{}
	for _, joined := range bills {
		if !joined.AwaitingPayment() {
			continue
		}

		c, err := l.store.GetCustomer(ctx, joined.CustomerID)
		if err != nil {
			result.ErrorCount++
			continue
		}

		msg := notify.ReminderMessage(c.Name, joined.Period, joined.AmountDue, joined.DueDate)
		if err := l.messenger.Send(ctx, c.Phone, msg); err != nil {
			l.logger.Warn("reminder dispatch failed",
				"bill_id", joined.ID.String(),
				"phone", c.Phone,
				"error", err,
			)
			result.ErrorCount++
			continue
		}

		result.SentCount++
		l.plugins.EmitReminderSent(ctx, &joined.Bill, c.Phone)
	}

	l.logger.Info("payment reminders dispatched",
		"sent", result.SentCount,
		"failed", result.ErrorCount,
	)
	return result, nil
}

// ──────────────────────────────────────────────────
// Dashboard
// ──────────────────────────────────────────────────

// DashboardStats summarizes the ledger for the admin landing page.
func (l *Ledger) DashboardStats(ctx context.Context) (*metrics.DashboardStats, error) {
	return l.store.DashboardStats(ctx)
}

// MeterMetrics returns per-meter lifetime consumption, heaviest first.
func (l *Ledger) MeterMetrics(ctx context.Context) ([]*metrics.MeterMetric, error) {
	return l.store.MeterMetrics(ctx)
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

// SignupInput registers a new customer together with their login.
type SignupInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// Signup creates a customer record and its login in one step. Account and
// meter numbers are allocated sequentially from the current customer count.
func (l *Ledger) Signup(ctx context.Context, in SignupInput) (*account.User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ValidationError{Field: "name", Message: "must not be empty"}
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ValidationError{Field: "email", Message: "must be a valid email address"}
	}

	hash, err := account.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	if _, err := l.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	}

	count, err := l.store.CountCustomers(ctx)
	if err != nil {
		return nil, err
	}

	// Sequential allocation can race with concurrent signups; retry past
	// any numbers already taken.
	var c *customer.Customer
	for seq := count + 1; ; seq++ {
		c = &customer.Customer{
			Entity:          types.NewEntity(),
			ID:              id.NewCustomerID(),
			Name:            in.Name,
			AccountNumber:   fmt.Sprintf("AT-%03d", seq),
			MeterNumber:     fmt.Sprintf("MT-%04d", 1000+seq),
			Phone:           in.Phone,
			LastReading:     0,
			LastReadingDate: l.now(),
		}
		err = l.store.CreateCustomer(ctx, c)
		if err == nil {
			break
		}
		if !IsConflict(err) {
			return nil, err
		}
	}

	u := &account.User{
		Entity:        types.NewEntity(),
		ID:            id.NewAccountID(),
		Name:          in.Name,
		Email:         email,
		Role:          account.RoleCustomer,
		AccountNumber: c.AccountNumber,
		CustomerID:    c.ID,
		PasswordHash:  hash,
	}
	if err := l.store.CreateUser(ctx, u); err != nil {
		// Roll back the customer so a failed signup leaves no orphan.
		if _, delErr := l.store.DeleteCustomer(ctx, c.ID); delErr != nil {
			l.logger.Error("signup rollback failed", "customer_id", c.ID.String(), "error", delErr)
		}
		return nil, err
	}

	l.logger.Info("customer signed up",
		"account_number", c.AccountNumber,
		"meter_number", c.MeterNumber,
	)
	l.plugins.EmitCustomerCreated(ctx, c)
	return u, nil
}

// Login authenticates by email and password.
func (l *Ledger) Login(ctx context.Context, email, password string) (*account.User, error) {
	u, err := l.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Profile returns the customer-facing view of a login joined with its
// customer record. Admin accounts have no profile.
func (l *Ledger) Profile(ctx context.Context, accountID id.AccountID) (*account.Profile, error) {
	u, err := l.store.GetUser(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if u.Role != account.RoleCustomer {
		return nil, ErrForbidden
	}

	c, err := l.store.GetCustomer(ctx, u.CustomerID)
	if err != nil {
		return nil, err
	}

	return &account.Profile{
		ID:            u.ID,
		Name:          c.Name,
		Email:         u.Email,
		Phone:         c.Phone,
		AccountNumber: c.AccountNumber,
		MeterNumber:   c.MeterNumber,
	}, nil
}

// UpdateProfile changes a customer's display name and phone number on
// both the login and the customer record.
func (l *Ledger) UpdateProfile(ctx context.Context, accountID id.AccountID, name, phone string) (*account.Profile, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ValidationError{Field: "name", Message: "must not be empty"}
	}

	u, err := l.store.GetUser(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if u.Role != account.RoleCustomer {
		return nil, ErrForbidden
	}

	c, err := l.store.GetCustomer(ctx, u.CustomerID)
	if err != nil {
		return nil, err
	}

	u.Name = name
	u.Touch()
	if err := l.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	c.Name = name
	c.Phone = phone
	c.Touch()
	if err := l.store.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}

	l.plugins.EmitCustomerUpdated(ctx, c)
	return l.Profile(ctx, accountID)
}

// ListAdmins lists administrator accounts.
func (l *Ledger) ListAdmins(ctx context.Context) ([]*account.User, error) {
	return l.store.ListAdmins(ctx)
}

// AddAdmin creates an administrator login.
func (l *Ledger) AddAdmin(ctx context.Context, name, email, password string) (*account.User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ValidationError{Field: "name", Message: "must not be empty"}
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ValidationError{Field: "email", Message: "must be a valid email address"}
	}

	hash, err := account.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	u := &account.User{
		Entity:       types.NewEntity(),
		ID:           id.NewAccountID(),
		Name:         name,
		Email:        email,
		Role:         account.RoleAdmin,
		PasswordHash: hash,
	}
	if err := l.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	l.logger.Info("admin added", "email", email)
	return u, nil
}

// RemoveAdmin deletes an administrator login. The last remaining admin
// cannot be removed.
func (l *Ledger) RemoveAdmin(ctx context.Context, accountID id.AccountID) error {
	u, err := l.store.GetUser(ctx, accountID)
	if err != nil {
		return err
	}
	if u.Role != account.RoleAdmin {
		return ErrForbidden
	}

	admins, err := l.store.ListAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) <= 1 {
		return ValidationError{Field: "account_id", Message: "cannot remove the last administrator"}
	}

	return l.store.DeleteUser(ctx, accountID)
}
