// Package sqlite implements store.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/dee-mee/aquatrack"
	"github.com/dee-mee/aquatrack/account"
	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/metrics"
	aquastore "github.com/dee-mee/aquatrack/store"
	"github.com/dee-mee/aquatrack/types"
)

// compile-time interface check
var _ aquastore.Store = (*Store)(nil)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at path. Use ":memory:" for an
// ephemeral database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/sqlite: open %s: %w", path, err)
	}

	// SQLite allows a single writer; serializing through one connection
	// avoids SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("aquatrack/sqlite: set pragmas: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies pending schema migrations in order.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS aquatrack_schema_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("%w: %w", aquatrack.ErrMigrationFailed, err)
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM aquatrack_schema_migrations WHERE version = ?`, m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("%w: %w", aquatrack.ErrMigrationFailed, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: %w", aquatrack.ErrMigrationFailed, err)
		}
		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %s: %w", aquatrack.ErrMigrationFailed, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO aquatrack_schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Name, time.Now().UnixNano(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %s: %w", aquatrack.ErrMigrationFailed, m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: %s: %w", aquatrack.ErrMigrationFailed, m.Name, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO aquatrack_customers
    (id, name, account_number, meter_number, phone, last_reading, last_reading_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Name, c.AccountNumber, c.MeterNumber, c.Phone,
		c.LastReading, c.LastReadingDate.UnixNano(),
		c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano(),
	)
	return mapCustomerConstraint(err)
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		customerSelect+` WHERE id = ?`, customerID.String())
	return scanCustomer(row)
}

func (s *Store) GetCustomerByAccount(ctx context.Context, accountNumber string) (*customer.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		customerSelect+` WHERE account_number = ?`, accountNumber)
	return scanCustomer(row)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	q := customerSelect + ` ORDER BY account_number ASC`
	q, args := applyLimit(q, nil, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*customer.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) CountCustomers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM aquatrack_customers`).Scan(&count)
	return count, err
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE aquatrack_customers
SET name = ?, account_number = ?, meter_number = ?, phone = ?,
    last_reading = ?, last_reading_date = ?, updated_at = ?
WHERE id = ?`,
		c.Name, c.AccountNumber, c.MeterNumber, c.Phone,
		c.LastReading, c.LastReadingDate.UnixNano(), c.UpdatedAt.UnixNano(),
		c.ID.String(),
	)
	if err != nil {
		return mapCustomerConstraint(err)
	}
	return requireAffected(res, aquatrack.ErrCustomerNotFound)
}

func (s *Store) DeleteCustomer(ctx context.Context, customerID id.CustomerID) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM aquatrack_bills WHERE customer_id = ?`, customerID.String())
	if err != nil {
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	res, err = tx.ExecContext(ctx,
		`DELETE FROM aquatrack_customers WHERE id = ?`, customerID.String())
	if err != nil {
		return 0, err
	}
	if err := requireAffected(res, aquatrack.ErrCustomerNotFound); err != nil {
		return 0, err
	}

	return removed, tx.Commit()
}

// ==================== Bill Store ====================

func (s *Store) CreateBill(ctx context.Context, b *bill.Bill) error {
	var paidAt any
	if b.PaidAt != nil {
		paidAt = b.PaidAt.UnixNano()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO aquatrack_bills
    (id, customer_id, period, previous_reading, current_reading, consumption,
     rate_cents, amount_due_cents, currency, due_date, status, approved,
     paid_at, payment_ref, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID.String(), b.CustomerID.String(), b.Period,
		b.PreviousReading, b.CurrentReading, b.Consumption,
		b.Rate.Amount, b.AmountDue.Amount, b.Rate.Currency,
		b.DueDate.UnixNano(), string(b.Status), b.Approved,
		paidAt, b.PaymentRef, b.CreatedAt.UnixNano(), b.UpdatedAt.UnixNano(),
	)
	return err
}

func (s *Store) GetBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	row := s.db.QueryRowContext(ctx, billSelect+` WHERE id = ?`, billID.String())
	return scanBill(row)
}

func (s *Store) ListBillsForCustomer(ctx context.Context, customerID id.CustomerID, opts bill.ListOpts) ([]*bill.Bill, error) {
	q := billSelect + ` WHERE customer_id = ?`
	args := []any{customerID.String()}
	if opts.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(opts.Status))
	}
	q += ` ORDER BY due_date DESC, created_at DESC`
	q, args = applyLimit(q, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*bill.Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (s *Store) ListAllBills(ctx context.Context, opts bill.ListOpts) ([]*bill.WithCustomer, error) {
	q := `
SELECT b.id, b.customer_id, b.period, b.previous_reading, b.current_reading,
       b.consumption, b.rate_cents, b.amount_due_cents, b.currency, b.due_date,
       b.status, b.approved, b.paid_at, b.payment_ref, b.created_at, b.updated_at,
       c.name, c.account_number
FROM aquatrack_bills b
JOIN aquatrack_customers c ON c.id = b.customer_id`
	var args []any
	if opts.Status != "" {
		q += ` WHERE b.status = ?`
		args = append(args, string(opts.Status))
	}
	q += ` ORDER BY b.due_date DESC, b.created_at DESC`
	q, args = applyLimit(q, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*bill.WithCustomer, 0)
	for rows.Next() {
		var (
			m           billRow
			name, accNo string
		)
		if err := rows.Scan(
			&m.id, &m.customerID, &m.period, &m.previousReading, &m.currentReading,
			&m.consumption, &m.rateCents, &m.amountCents, &m.currency, &m.dueDate,
			&m.status, &m.approved, &m.paidAt, &m.paymentRef, &m.createdAt, &m.updatedAt,
			&name, &accNo,
		); err != nil {
			return nil, err
		}
		b, err := m.toBill()
		if err != nil {
			return nil, err
		}
		result = append(result, &bill.WithCustomer{
			Bill:                  *b,
			CustomerName:          name,
			CustomerAccountNumber: accNo,
		})
	}
	return result, rows.Err()
}

func (s *Store) UpdateBill(ctx context.Context, b *bill.Bill) error {
	var paidAt any
	if b.PaidAt != nil {
		paidAt = b.PaidAt.UnixNano()
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE aquatrack_bills
SET customer_id = ?, period = ?, previous_reading = ?, current_reading = ?,
    consumption = ?, rate_cents = ?, amount_due_cents = ?, currency = ?,
    due_date = ?, status = ?, approved = ?, paid_at = ?, payment_ref = ?, updated_at = ?
WHERE id = ?`,
		b.CustomerID.String(), b.Period, b.PreviousReading, b.CurrentReading,
		b.Consumption, b.Rate.Amount, b.AmountDue.Amount, b.Rate.Currency,
		b.DueDate.UnixNano(), string(b.Status), b.Approved, paidAt, b.PaymentRef,
		b.UpdatedAt.UnixNano(), b.ID.String(),
	)
	if err != nil {
		return err
	}
	return requireAffected(res, aquatrack.ErrBillNotFound)
}

func (s *Store) DeleteBill(ctx context.Context, billID id.BillID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM aquatrack_bills WHERE id = ?`, billID.String())
	if err != nil {
		return err
	}
	return requireAffected(res, aquatrack.ErrBillNotFound)
}

func (s *Store) ApproveBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	b, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	b.Approve()
	b.Touch()
	if err := s.UpdateBill(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) MarkBillPaid(ctx context.Context, billID id.BillID, paidAt time.Time, paymentRef string) (*bill.Bill, error) {
	b, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if b.Status == bill.StatusPaid {
		return b, aquatrack.ErrBillAlreadyPaid
	}
	if !b.MarkPaid(paidAt, paymentRef) {
		return b, aquatrack.ErrBillNotApproved
	}
	b.Touch()
	if err := s.UpdateBill(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *account.User) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO aquatrack_users
    (id, name, email, role, account_number, customer_id, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID.String(), u.Name, u.Email, string(u.Role),
		u.AccountNumber, customerIDString(u.CustomerID), u.PasswordHash,
		u.CreatedAt.UnixNano(), u.UpdatedAt.UnixNano(),
	)
	if err != nil && strings.Contains(err.Error(), "aquatrack_users.email") {
		return aquatrack.ErrDuplicateEmail
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, accountID id.AccountID) (*account.User, error) {
	row := s.db.QueryRowContext(ctx, userSelect+` WHERE id = ?`, accountID.String())
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*account.User, error) {
	row := s.db.QueryRowContext(ctx, userSelect+` WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Store) ListAdmins(ctx context.Context) ([]*account.User, error) {
	rows, err := s.db.QueryContext(ctx,
		userSelect+` WHERE role = ? ORDER BY email ASC`, string(account.RoleAdmin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*account.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u *account.User) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE aquatrack_users
SET name = ?, email = ?, role = ?, account_number = ?, customer_id = ?,
    password_hash = ?, updated_at = ?
WHERE id = ?`,
		u.Name, u.Email, string(u.Role), u.AccountNumber,
		customerIDString(u.CustomerID), u.PasswordHash,
		u.UpdatedAt.UnixNano(), u.ID.String(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "aquatrack_users.email") {
			return aquatrack.ErrDuplicateEmail
		}
		return err
	}
	return requireAffected(res, aquatrack.ErrAccountNotFound)
}

func (s *Store) DeleteUser(ctx context.Context, accountID id.AccountID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM aquatrack_users WHERE id = ?`, accountID.String())
	if err != nil {
		return err
	}
	return requireAffected(res, aquatrack.ErrAccountNotFound)
}

// ==================== Metrics Store ====================

func (s *Store) DashboardStats(ctx context.Context) (*metrics.DashboardStats, error) {
	stats := &metrics.DashboardStats{}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM aquatrack_customers`).Scan(&stats.TotalCustomers); err != nil {
		return nil, err
	}

	var (
		outstanding int64
		currency    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(amount_due_cents), 0), MAX(currency)
FROM aquatrack_bills
WHERE approved = 1 AND status IN (?, ?)`,
		string(bill.StatusUnpaid), string(bill.StatusOverdue),
	).Scan(&stats.BillsAwaitingPayment, &outstanding, &currency)
	if err != nil {
		return nil, err
	}

	cur := "kes"
	if currency.Valid && currency.String != "" {
		cur = currency.String
	}
	stats.TotalOutstanding = types.Money{Amount: outstanding, Currency: cur}
	return stats, nil
}

func (s *Store) MeterMetrics(ctx context.Context) ([]*metrics.MeterMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.meter_number, c.name, c.account_number, COALESCE(SUM(b.consumption), 0) AS total
FROM aquatrack_customers c
LEFT JOIN aquatrack_bills b ON b.customer_id = c.id
GROUP BY c.id
ORDER BY total DESC, c.meter_number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*metrics.MeterMetric, 0)
	for rows.Next() {
		m := &metrics.MeterMetric{}
		if err := rows.Scan(&m.MeterNumber, &m.CustomerName, &m.CustomerAccountNumber, &m.TotalConsumption); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// ==================== Row scanning ====================

const customerSelect = `
SELECT id, name, account_number, meter_number, phone, last_reading,
       last_reading_date, created_at, updated_at
FROM aquatrack_customers`

const billSelect = `
SELECT id, customer_id, period, previous_reading, current_reading, consumption,
       rate_cents, amount_due_cents, currency, due_date, status, approved,
       paid_at, payment_ref, created_at, updated_at
FROM aquatrack_bills`

const userSelect = `
SELECT id, name, email, role, account_number, customer_id, password_hash,
       created_at, updated_at
FROM aquatrack_users`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner) (*customer.Customer, error) {
	var (
		c                                 customer.Customer
		rawID                             string
		lastReadingDate, created, updated int64
	)
	err := row.Scan(&rawID, &c.Name, &c.AccountNumber, &c.MeterNumber, &c.Phone,
		&c.LastReading, &lastReadingDate, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, aquatrack.ErrCustomerNotFound
		}
		return nil, err
	}

	if c.ID, err = id.ParseCustomerID(rawID); err != nil {
		return nil, fmt.Errorf("aquatrack/sqlite: corrupt customer id %q: %w", rawID, err)
	}
	c.LastReadingDate = fromNanos(lastReadingDate)
	c.CreatedAt = fromNanos(created)
	c.UpdatedAt = fromNanos(updated)
	return &c, nil
}

type billRow struct {
	id, customerID, period, currency, status, paymentRef string
	previousReading, currentReading, consumption         int64
	rateCents, amountCents, dueDate, createdAt, updatedAt int64
	approved                                             bool
	paidAt                                               sql.NullInt64
}

func (m *billRow) toBill() (*bill.Bill, error) {
	b := &bill.Bill{
		Period:          m.period,
		PreviousReading: m.previousReading,
		CurrentReading:  m.currentReading,
		Consumption:     m.consumption,
		Rate:            types.Money{Amount: m.rateCents, Currency: m.currency},
		AmountDue:       types.Money{Amount: m.amountCents, Currency: m.currency},
		DueDate:         fromNanos(m.dueDate),
		Status:          bill.Status(m.status),
		Approved:        m.approved,
		PaymentRef:      m.paymentRef,
	}
	var err error
	if b.ID, err = id.ParseBillID(m.id); err != nil {
		return nil, fmt.Errorf("aquatrack/sqlite: corrupt bill id %q: %w", m.id, err)
	}
	if b.CustomerID, err = id.ParseCustomerID(m.customerID); err != nil {
		return nil, fmt.Errorf("aquatrack/sqlite: corrupt customer id %q: %w", m.customerID, err)
	}
	if m.paidAt.Valid {
		t := fromNanos(m.paidAt.Int64)
		b.PaidAt = &t
	}
	b.CreatedAt = fromNanos(m.createdAt)
	b.UpdatedAt = fromNanos(m.updatedAt)
	return b, nil
}

func scanBill(row scanner) (*bill.Bill, error) {
	var m billRow
	err := row.Scan(&m.id, &m.customerID, &m.period, &m.previousReading, &m.currentReading,
		&m.consumption, &m.rateCents, &m.amountCents, &m.currency, &m.dueDate,
		&m.status, &m.approved, &m.paidAt, &m.paymentRef, &m.createdAt, &m.updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, aquatrack.ErrBillNotFound
		}
		return nil, err
	}
	return m.toBill()
}

func scanUser(row scanner) (*account.User, error) {
	var (
		u                       account.User
		rawID, role, customerID string
		created, updated        int64
	)
	err := row.Scan(&rawID, &u.Name, &u.Email, &role, &u.AccountNumber,
		&customerID, &u.PasswordHash, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, aquatrack.ErrAccountNotFound
		}
		return nil, err
	}

	if u.ID, err = id.ParseAccountID(rawID); err != nil {
		return nil, fmt.Errorf("aquatrack/sqlite: corrupt account id %q: %w", rawID, err)
	}
	u.Role = account.Role(role)
	if customerID != "" {
		if u.CustomerID, err = id.ParseCustomerID(customerID); err != nil {
			return nil, fmt.Errorf("aquatrack/sqlite: corrupt customer id %q: %w", customerID, err)
		}
	}
	u.CreatedAt = fromNanos(created)
	u.UpdatedAt = fromNanos(updated)
	return &u, nil
}

// ==================== Helpers ====================

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func customerIDString(cid id.CustomerID) string {
	if cid.IsNil() {
		return ""
	}
	return cid.String()
}

func applyLimit(q string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
		if offset > 0 {
			q += ` OFFSET ?`
			args = append(args, offset)
		}
	}
	return q, args
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func mapCustomerConstraint(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "aquatrack_customers.account_number"):
		return aquatrack.ErrDuplicateAccountNumber
	case strings.Contains(msg, "aquatrack_customers.meter_number"):
		return aquatrack.ErrDuplicateMeterNumber
	}
	return err
}
