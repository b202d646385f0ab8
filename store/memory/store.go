// Package memory provides an in-memory Store for tests and embedded use.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dee-mee/aquatrack"
	"github.com/dee-mee/aquatrack/account"
	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/metrics"
	"github.com/dee-mee/aquatrack/types"
)

type Store struct {
	mu sync.RWMutex

	// Customer storage
	customers map[string]*customer.Customer

	// Bill storage
	bills map[string]*bill.Bill

	// User storage
	users map[string]*account.User
}

func New() *Store {
	return &Store{
		customers: make(map[string]*customer.Customer),
		bills:     make(map[string]*bill.Bill),
		users:     make(map[string]*account.User),
	}
}

// Customer Store implementation
func (s *Store) CreateCustomer(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.ID.String()]; exists {
		return aquatrack.ErrAlreadyExists
	}
	for _, existing := range s.customers {
		if existing.AccountNumber == c.AccountNumber {
			return aquatrack.ErrDuplicateAccountNumber
		}
		if existing.MeterNumber == c.MeterNumber {
			return aquatrack.ErrDuplicateMeterNumber
		}
	}
	s.customers[c.ID.String()] = c
	return nil
}

func (s *Store) GetCustomer(_ context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.customers[customerID.String()]; ok {
		return c, nil
	}
	return nil, aquatrack.ErrCustomerNotFound
}

func (s *Store) GetCustomerByAccount(_ context.Context, accountNumber string) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.AccountNumber == accountNumber {
			return c, nil
		}
	}
	return nil, aquatrack.ErrCustomerNotFound
}

func (s *Store) ListCustomers(_ context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*customer.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AccountNumber < result[j].AccountNumber
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountCustomers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.customers)), nil
}

func (s *Store) UpdateCustomer(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.ID.String()]; !exists {
		return aquatrack.ErrCustomerNotFound
	}
	for _, existing := range s.customers {
		if existing.ID == c.ID {
			continue
		}
		if existing.AccountNumber == c.AccountNumber {
			return aquatrack.ErrDuplicateAccountNumber
		}
		if existing.MeterNumber == c.MeterNumber {
			return aquatrack.ErrDuplicateMeterNumber
		}
	}
	s.customers[c.ID.String()] = c
	return nil
}

func (s *Store) DeleteCustomer(_ context.Context, customerID id.CustomerID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[customerID.String()]; !exists {
		return 0, aquatrack.ErrCustomerNotFound
	}
	delete(s.customers, customerID.String())

	var removed int64
	for key, b := range s.bills {
		if b.CustomerID == customerID {
			delete(s.bills, key)
			removed++
		}
	}
	return removed, nil
}

// Bill Store implementation
func (s *Store) CreateBill(_ context.Context, b *bill.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bills[b.ID.String()]; exists {
		return aquatrack.ErrAlreadyExists
	}
	if _, exists := s.customers[b.CustomerID.String()]; !exists {
		return aquatrack.ErrCustomerNotFound
	}
	s.bills[b.ID.String()] = b
	return nil
}

func (s *Store) GetBill(_ context.Context, billID id.BillID) (*bill.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.bills[billID.String()]; ok {
		return b, nil
	}
	return nil, aquatrack.ErrBillNotFound
}

func (s *Store) ListBillsForCustomer(_ context.Context, customerID id.CustomerID, opts bill.ListOpts) ([]*bill.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*bill.Bill, 0)
	for _, b := range s.bills {
		if b.CustomerID != customerID {
			continue
		}
		if opts.Status != "" && b.Status != opts.Status {
			continue
		}
		result = append(result, b)
	}
	sortBillsNewestFirst(result)

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListAllBills(_ context.Context, opts bill.ListOpts) ([]*bill.WithCustomer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*bill.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		if opts.Status != "" && b.Status != opts.Status {
			continue
		}
		matched = append(matched, b)
	}
	sortBillsNewestFirst(matched)

	result := make([]*bill.WithCustomer, 0, len(matched))
	for _, b := range paginate(matched, opts.Offset, opts.Limit) {
		joined := &bill.WithCustomer{Bill: *b}
		if c, ok := s.customers[b.CustomerID.String()]; ok {
			joined.CustomerName = c.Name
			joined.CustomerAccountNumber = c.AccountNumber
		}
		result = append(result, joined)
	}
	return result, nil
}

func (s *Store) UpdateBill(_ context.Context, b *bill.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bills[b.ID.String()]; !exists {
		return aquatrack.ErrBillNotFound
	}
	s.bills[b.ID.String()] = b
	return nil
}

func (s *Store) DeleteBill(_ context.Context, billID id.BillID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bills[billID.String()]; !exists {
		return aquatrack.ErrBillNotFound
	}
	delete(s.bills, billID.String())
	return nil
}

func (s *Store) ApproveBill(_ context.Context, billID id.BillID) (*bill.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.bills[billID.String()]
	if !exists {
		return nil, aquatrack.ErrBillNotFound
	}
	b.Approve()
	b.Touch()
	return b, nil
}

func (s *Store) MarkBillPaid(_ context.Context, billID id.BillID, paidAt time.Time, paymentRef string) (*bill.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.bills[billID.String()]
	if !exists {
		return nil, aquatrack.ErrBillNotFound
	}
	if b.Status == bill.StatusPaid {
		return b, aquatrack.ErrBillAlreadyPaid
	}
	if !b.MarkPaid(paidAt, paymentRef) {
		return b, aquatrack.ErrBillNotApproved
	}
	b.Touch()
	return b, nil
}

// User Store implementation
func (s *Store) CreateUser(_ context.Context, u *account.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; exists {
		return aquatrack.ErrAlreadyExists
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return aquatrack.ErrDuplicateEmail
		}
	}
	s.users[u.ID.String()] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, accountID id.AccountID) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[accountID.String()]; ok {
		return u, nil
	}
	return nil, aquatrack.ErrAccountNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, aquatrack.ErrAccountNotFound
}

func (s *Store) ListAdmins(_ context.Context) ([]*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.User, 0)
	for _, u := range s.users {
		if u.Role == account.RoleAdmin {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Email < result[j].Email
	})
	return result, nil
}

func (s *Store) UpdateUser(_ context.Context, u *account.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; !exists {
		return aquatrack.ErrAccountNotFound
	}
	for _, existing := range s.users {
		if existing.ID != u.ID && existing.Email == u.Email {
			return aquatrack.ErrDuplicateEmail
		}
	}
	s.users[u.ID.String()] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[accountID.String()]; !exists {
		return aquatrack.ErrAccountNotFound
	}
	delete(s.users, accountID.String())
	return nil
}

// Metrics Store implementation
func (s *Store) DashboardStats(_ context.Context) (*metrics.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &metrics.DashboardStats{
		TotalCustomers: int64(len(s.customers)),
	}
	outstanding := make([]types.Money, 0)
	for _, b := range s.bills {
		if b.AwaitingPayment() {
			stats.BillsAwaitingPayment++
			outstanding = append(outstanding, b.AmountDue)
		}
	}
	stats.TotalOutstanding = types.Sum(outstanding...)
	return stats, nil
}

func (s *Store) MeterMetrics(_ context.Context) ([]*metrics.MeterMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCustomer := make(map[string]*metrics.MeterMetric, len(s.customers))
	for key, c := range s.customers {
		byCustomer[key] = &metrics.MeterMetric{
			MeterNumber:           c.MeterNumber,
			CustomerName:          c.Name,
			CustomerAccountNumber: c.AccountNumber,
		}
	}
	for _, b := range s.bills {
		if m, ok := byCustomer[b.CustomerID.String()]; ok {
			m.TotalConsumption += b.Consumption
		}
	}

	result := make([]*metrics.MeterMetric, 0, len(byCustomer))
	for _, m := range byCustomer {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalConsumption != result[j].TotalConsumption {
			return result[i].TotalConsumption > result[j].TotalConsumption
		}
		return result[i].MeterNumber < result[j].MeterNumber
	})
	return result, nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// sortBillsNewestFirst orders bills by due date descending, then creation
// time descending for same-day bills.
func sortBillsNewestFirst(bills []*bill.Bill) {
	sort.Slice(bills, func(i, j int) bool {
		if !bills[i].DueDate.Equal(bills[j].DueDate) {
			return bills[i].DueDate.After(bills[j].DueDate)
		}
		return bills[i].CreatedAt.After(bills[j].CreatedAt)
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
