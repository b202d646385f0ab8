// Package postgres implements store.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database at databaseURL.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/postgres: parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/postgres: connect: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Pool returns the underlying connection pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate applies the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", aquatrack.ErrMigrationFailed, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases database resources.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO aquatrack_customers
    (id, name, account_number, meter_number, phone, last_reading, last_reading_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID.String(), c.Name, c.AccountNumber, c.MeterNumber, c.Phone,
		c.LastReading, c.LastReadingDate, c.CreatedAt, c.UpdatedAt,
	)
	return mapCustomerConstraint(err)
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	row := s.pool.QueryRow(ctx, customerSelect+` WHERE id = $1`, customerID.String())
	return scanCustomer(row)
}

func (s *Store) GetCustomerByAccount(ctx context.Context, accountNumber string) (*customer.Customer, error) {
	row := s.pool.QueryRow(ctx, customerSelect+` WHERE account_number = $1`, accountNumber)
	return scanCustomer(row)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	q := customerSelect + ` ORDER BY account_number ASC`
	q, args := applyLimit(q, nil, opts.Limit, opts.Offset)

	rows, err := s.pool.Query(ctx, q, args...)
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
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM aquatrack_customers`).Scan(&count)
	return count, err
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE aquatrack_customers
SET name = $1, account_number = $2, meter_number = $3, phone = $4,
    last_reading = $5, last_reading_date = $6, updated_at = $7
WHERE id = $8`,
		c.Name, c.AccountNumber, c.MeterNumber, c.Phone,
		c.LastReading, c.LastReadingDate, c.UpdatedAt, c.ID.String(),
	)
	if err != nil {
		return mapCustomerConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return aquatrack.ErrCustomerNotFound
	}
	return nil
}

func (s *Store) DeleteCustomer(ctx context.Context, customerID id.CustomerID) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM aquatrack_bills WHERE customer_id = $1`, customerID.String())
	if err != nil {
		return 0, err
	}
	removed := tag.RowsAffected()

	tag, err = tx.Exec(ctx,
		`DELETE FROM aquatrack_customers WHERE id = $1`, customerID.String())
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, aquatrack.ErrCustomerNotFound
	}

	return removed, tx.Commit(ctx)
}

// ==================== Bill Store ====================

func (s *Store) CreateBill(ctx context.Context, b *bill.Bill) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO aquatrack_bills
    (id, customer_id, period, previous_reading, current_reading, consumption,
     rate_cents, amount_due_cents, currency, due_date, status, approved,
     paid_at, payment_ref, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		b.ID.String(), b.CustomerID.String(), b.Period,
		b.PreviousReading, b.CurrentReading, b.Consumption,
		b.Rate.Amount, b.AmountDue.Amount, b.Rate.Currency,
		b.DueDate, string(b.Status), b.Approved,
		b.PaidAt, b.PaymentRef, b.CreatedAt, b.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return aquatrack.ErrCustomerNotFound
	}
	return err
}

func (s *Store) GetBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	row := s.pool.QueryRow(ctx, billSelect+` WHERE id = $1`, billID.String())
	return scanBill(row)
}

func (s *Store) ListBillsForCustomer(ctx context.Context, customerID id.CustomerID, opts bill.ListOpts) ([]*bill.Bill, error) {
	q := billSelect + ` WHERE customer_id = $1`
	args := []any{customerID.String()}
	if opts.Status != "" {
		q += fmt.Sprintf(` AND status = $%d`, len(args)+1)
		args = append(args, string(opts.Status))
	}
	q += ` ORDER BY due_date DESC, created_at DESC`
	q, args = applyLimit(q, args, opts.Limit, opts.Offset)

	rows, err := s.pool.Query(ctx, q, args...)
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
		q += ` WHERE b.status = $1`
		args = append(args, string(opts.Status))
	}
	q += ` ORDER BY b.due_date DESC, b.created_at DESC`
	q, args = applyLimit(q, args, opts.Limit, opts.Offset)

	rows, err := s.pool.Query(ctx, q, args...)
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
	tag, err := s.pool.Exec(ctx, `
UPDATE aquatrack_bills
SET customer_id = $1, period = $2, previous_reading = $3, current_reading = $4,
    consumption = $5, rate_cents = $6, amount_due_cents = $7, currency = $8,
    due_date = $9, status = $10, approved = $11, paid_at = $12, payment_ref = $13,
    updated_at = $14
WHERE id = $15`,
		b.CustomerID.String(), b.Period, b.PreviousReading, b.CurrentReading,
		b.Consumption, b.Rate.Amount, b.AmountDue.Amount, b.Rate.Currency,
		b.DueDate, string(b.Status), b.Approved, b.PaidAt, b.PaymentRef,
		b.UpdatedAt, b.ID.String(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return aquatrack.ErrBillNotFound
	}
	return nil
}

func (s *Store) DeleteBill(ctx context.Context, billID id.BillID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM aquatrack_bills WHERE id = $1`, billID.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return aquatrack.ErrBillNotFound
	}
	return nil
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
	_, err := s.pool.Exec(ctx, `
INSERT INTO aquatrack_users
    (id, name, email, role, account_number, customer_id, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID.String(), u.Name, u.Email, string(u.Role),
		u.AccountNumber, customerIDString(u.CustomerID), u.PasswordHash,
		u.CreatedAt, u.UpdatedAt,
	)
	return mapUserConstraint(err)
}

func (s *Store) GetUser(ctx context.Context, accountID id.AccountID) (*account.User, error) {
	row := s.pool.QueryRow(ctx, userSelect+` WHERE id = $1`, accountID.String())
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*account.User, error) {
	row := s.pool.QueryRow(ctx, userSelect+` WHERE email = $1`, email)
	return scanUser(row)
}

func (s *Store) ListAdmins(ctx context.Context) ([]*account.User, error) {
	rows, err := s.pool.Query(ctx,
		userSelect+` WHERE role = $1 ORDER BY email ASC`, string(account.RoleAdmin))
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
	tag, err := s.pool.Exec(ctx, `
UPDATE aquatrack_users
SET name = $1, email = $2, role = $3, account_number = $4, customer_id = $5,
    password_hash = $6, updated_at = $7
WHERE id = $8`,
		u.Name, u.Email, string(u.Role), u.AccountNumber,
		customerIDString(u.CustomerID), u.PasswordHash, u.UpdatedAt, u.ID.String(),
	)
	if err != nil {
		return mapUserConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return aquatrack.ErrAccountNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, accountID id.AccountID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM aquatrack_users WHERE id = $1`, accountID.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return aquatrack.ErrAccountNotFound
	}
	return nil
}

// ==================== Metrics Store ====================

func (s *Store) DashboardStats(ctx context.Context) (*metrics.DashboardStats, error) {
	stats := &metrics.DashboardStats{}

	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM aquatrack_customers`).Scan(&stats.TotalCustomers); err != nil {
		return nil, err
	}

	var (
		outstanding int64
		currency    *string
	)
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(SUM(amount_due_cents), 0), MAX(currency)
FROM aquatrack_bills
WHERE approved AND status IN ($1, $2)`,
		string(bill.StatusUnpaid), string(bill.StatusOverdue),
	).Scan(&stats.BillsAwaitingPayment, &outstanding, &currency)
	if err != nil {
		return nil, err
	}

	cur := "kes"
	if currency != nil && *currency != "" {
		cur = *currency
	}
	stats.TotalOutstanding = types.Money{Amount: outstanding, Currency: cur}
	return stats, nil
}

func (s *Store) MeterMetrics(ctx context.Context) ([]*metrics.MeterMetric, error) {
	rows, err := s.pool.Query(ctx, `
SELECT c.meter_number, c.name, c.account_number, COALESCE(SUM(b.consumption), 0) AS total
FROM aquatrack_customers c
LEFT JOIN aquatrack_bills b ON b.customer_id = c.id
GROUP BY c.id, c.meter_number, c.name, c.account_number
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

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner) (*customer.Customer, error) {
	var (
		c     customer.Customer
		rawID string
	)
	err := row.Scan(&rawID, &c.Name, &c.AccountNumber, &c.MeterNumber, &c.Phone,
		&c.LastReading, &c.LastReadingDate, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, aquatrack.ErrCustomerNotFound
		}
		return nil, err
	}

	if c.ID, err = id.ParseCustomerID(rawID); err != nil {
		return nil, fmt.Errorf("aquatrack/postgres: corrupt customer id %q: %w", rawID, err)
	}
	return &c, nil
}

type billRow struct {
	id, customerID, period, currency, status, paymentRef string
	previousReading, currentReading, consumption         int64
	rateCents, amountCents                               int64
	dueDate, createdAt, updatedAt                        time.Time
	approved                                             bool
	paidAt                                               *time.Time
}

func (m *billRow) toBill() (*bill.Bill, error) {
	b := &bill.Bill{
		Period:          m.period,
		PreviousReading: m.previousReading,
		CurrentReading:  m.currentReading,
		Consumption:     m.consumption,
		Rate:            types.Money{Amount: m.rateCents, Currency: m.currency},
		AmountDue:       types.Money{Amount: m.amountCents, Currency: m.currency},
		DueDate:         m.dueDate,
		Status:          bill.Status(m.status),
		Approved:        m.approved,
		PaidAt:          m.paidAt,
		PaymentRef:      m.paymentRef,
	}
	var err error
	if b.ID, err = id.ParseBillID(m.id); err != nil {
		return nil, fmt.Errorf("aquatrack/postgres: corrupt bill id %q: %w", m.id, err)
	}
	if b.CustomerID, err = id.ParseCustomerID(m.customerID); err != nil {
		return nil, fmt.Errorf("aquatrack/postgres: corrupt customer id %q: %w", m.customerID, err)
	}
	b.CreatedAt = m.createdAt
	b.UpdatedAt = m.updatedAt
	return b, nil
}

func scanBill(row scanner) (*bill.Bill, error) {
	var m billRow
	err := row.Scan(&m.id, &m.customerID, &m.period, &m.previousReading, &m.currentReading,
		&m.consumption, &m.rateCents, &m.amountCents, &m.currency, &m.dueDate,
		&m.status, &m.approved, &m.paidAt, &m.paymentRef, &m.createdAt, &m.updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	)
	err := row.Scan(&rawID, &u.Name, &u.Email, &role, &u.AccountNumber,
		&customerID, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, aquatrack.ErrAccountNotFound
		}
		return nil, err
	}

	if u.ID, err = id.ParseAccountID(rawID); err != nil {
		return nil, fmt.Errorf("aquatrack/postgres: corrupt account id %q: %w", rawID, err)
	}
	u.Role = account.Role(role)
	if customerID != "" {
		if u.CustomerID, err = id.ParseCustomerID(customerID); err != nil {
			return nil, fmt.Errorf("aquatrack/postgres: corrupt customer id %q: %w", customerID, err)
		}
	}
	return &u, nil
}

// ==================== Helpers ====================

func customerIDString(cid id.CustomerID) string {
	if cid.IsNil() {
		return ""
	}
	return cid.String()
}

func applyLimit(q string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
		if offset > 0 {
			q += fmt.Sprintf(` OFFSET $%d`, len(args)+1)
			args = append(args, offset)
		}
	}
	return q, args
}

func mapCustomerConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "account"):
		return aquatrack.ErrDuplicateAccountNumber
	case strings.Contains(pgErr.ConstraintName, "meter"):
		return aquatrack.ErrDuplicateMeterNumber
	}
	return aquatrack.ErrAlreadyExists
}

func mapUserConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return aquatrack.ErrDuplicateEmail
	}
	return err
}
