package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dee-mee/aquatrack"
	"github.com/dee-mee/aquatrack/account"
	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newTestCustomer(accountNumber, meterNumber string) *customer.Customer {
	return &customer.Customer{
		Entity:          types.NewEntity(),
		ID:              id.NewCustomerID(),
		Name:            "John Mwangi",
		AccountNumber:   accountNumber,
		MeterNumber:     meterNumber,
		Phone:           "254712345678",
		LastReading:     1200,
		LastReadingDate: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestBill(customerID id.CustomerID, due time.Time) *bill.Bill {
	b := &bill.Bill{
		Entity:          types.NewEntity(),
		ID:              id.NewBillID(),
		CustomerID:      customerID,
		Period:          "August 2024",
		PreviousReading: 1200,
		CurrentReading:  1265,
		Rate:            types.KES(150),
		DueDate:         due,
		Status:          bill.StatusPendingApproval,
	}
	b.Derive()
	return b
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestCustomerRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := newTestCustomer("AT-001", "MT-1001")
	require.NoError(t, s.CreateCustomer(ctx, c))

	got, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "John Mwangi", got.Name)
	assert.Equal(t, int64(1200), got.LastReading)
	assert.Equal(t, c.LastReadingDate, got.LastReadingDate)

	byAccount, err := s.GetCustomerByAccount(ctx, "AT-001")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byAccount.ID)

	_, err = s.GetCustomer(ctx, id.NewCustomerID())
	assert.ErrorIs(t, err, aquatrack.ErrCustomerNotFound)
}

func TestCustomerUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCustomer(ctx, newTestCustomer("AT-001", "MT-1001")))

	err := s.CreateCustomer(ctx, newTestCustomer("AT-001", "MT-2002"))
	assert.ErrorIs(t, err, aquatrack.ErrDuplicateAccountNumber)

	err = s.CreateCustomer(ctx, newTestCustomer("AT-002", "MT-1001"))
	assert.ErrorIs(t, err, aquatrack.ErrDuplicateMeterNumber)
}

func TestBillRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := newTestCustomer("AT-001", "MT-1001")
	require.NoError(t, s.CreateCustomer(ctx, c))

	due := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)
	b := newTestBill(c.ID, due)
	require.NoError(t, s.CreateBill(ctx, b))

	got, err := s.GetBill(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, int64(65), got.Consumption)
	assert.Equal(t, types.KES(9750), got.AmountDue)
	assert.Equal(t, types.KES(150), got.Rate)
	assert.Equal(t, due, got.DueDate)
	assert.Equal(t, bill.StatusPendingApproval, got.Status)
	assert.False(t, got.Approved)
	assert.Nil(t, got.PaidAt)
}

func TestApproveAndPayBill(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := newTestCustomer("AT-001", "MT-1001")
	require.NoError(t, s.CreateCustomer(ctx, c))
	b := newTestBill(c.ID, time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.CreateBill(ctx, b))

	paidAt := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.MarkBillPaid(ctx, b.ID, paidAt, "MM-1")
	assert.ErrorIs(t, err, aquatrack.ErrBillNotApproved)

	approved, err := s.ApproveBill(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, bill.StatusUnpaid, approved.Status)

	paid, err := s.MarkBillPaid(ctx, b.ID, paidAt, "MM-1")
	require.NoError(t, err)
	assert.Equal(t, bill.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, paidAt, *paid.PaidAt)

	_, err = s.MarkBillPaid(ctx, b.ID, paidAt, "MM-2")
	assert.ErrorIs(t, err, aquatrack.ErrBillAlreadyPaid)

	// The paid timestamp survives a round trip.
	got, err := s.GetBill(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, paidAt, *got.PaidAt)
	assert.Equal(t, "MM-1", got.PaymentRef)
}

func TestListAllBillsJoinAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := newTestCustomer("AT-001", "MT-1001")
	require.NoError(t, s.CreateCustomer(ctx, c))

	aug := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)
	sep := time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateBill(ctx, newTestBill(c.ID, aug)))
	require.NoError(t, s.CreateBill(ctx, newTestBill(c.ID, sep)))

	joined, err := s.ListAllBills(ctx, bill.ListOpts{})
	require.NoError(t, err)
	require.Len(t, joined, 2)
	assert.Equal(t, sep, joined[0].DueDate)
	assert.Equal(t, "John Mwangi", joined[0].CustomerName)
	assert.Equal(t, "AT-001", joined[0].CustomerAccountNumber)
}

func TestDeleteCustomerCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := newTestCustomer("AT-001", "MT-1001")
	require.NoError(t, s.CreateCustomer(ctx, c))
	due := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateBill(ctx, newTestBill(c.ID, due)))
	require.NoError(t, s.CreateBill(ctx, newTestBill(c.ID, due)))

	removed, err := s.DeleteCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = s.GetCustomer(ctx, c.ID)
	assert.ErrorIs(t, err, aquatrack.ErrCustomerNotFound)

	bills, err := s.ListAllBills(ctx, bill.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, bills)
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := newTestCustomer("AT-001", "MT-1001")
	require.NoError(t, s.CreateCustomer(ctx, c))

	u := &account.User{
		Entity:        types.NewEntity(),
		ID:            id.NewAccountID(),
		Name:          "John Mwangi",
		Email:         "john@example.com",
		Role:          account.RoleCustomer,
		AccountNumber: "AT-001",
		CustomerID:    c.ID,
		PasswordHash:  "$2a$10$hash",
	}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, c.ID, got.CustomerID)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)

	dup := &account.User{
		Entity: types.NewEntity(),
		ID:     id.NewAccountID(),
		Email:  "john@example.com",
		Role:   account.RoleCustomer,
	}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), aquatrack.ErrDuplicateEmail)
}

func TestAdminWithoutCustomerID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &account.User{
		Entity: types.NewEntity(),
		ID:     id.NewAccountID(),
		Name:   "Admin",
		Email:  "admin@example.com",
		Role:   account.RoleAdmin,
	}
	require.NoError(t, s.CreateUser(ctx, u))

	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.True(t, admins[0].CustomerID.IsNil())
}

func TestDashboardStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := newTestCustomer("AT-001", "MT-1001")
	require.NoError(t, s.CreateCustomer(ctx, c))

	due := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)
	pending := newTestBill(c.ID, due)
	require.NoError(t, s.CreateBill(ctx, pending))

	owed := newTestBill(c.ID, due)
	owed.Approve()
	require.NoError(t, s.CreateBill(ctx, owed))

	stats, err := s.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalCustomers)
	assert.Equal(t, int64(1), stats.BillsAwaitingPayment)
	assert.Equal(t, types.KES(9750), stats.TotalOutstanding)
}

func TestMeterMetrics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := newTestCustomer("AT-001", "MT-1001")
	require.NoError(t, s.CreateCustomer(ctx, c))
	idle := newTestCustomer("AT-002", "MT-2002")
	require.NoError(t, s.CreateCustomer(ctx, idle))

	due := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateBill(ctx, newTestBill(c.ID, due)))
	require.NoError(t, s.CreateBill(ctx, newTestBill(c.ID, due)))

	ms, err := s.MeterMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "MT-1001", ms[0].MeterNumber)
	assert.Equal(t, int64(130), ms[0].TotalConsumption)

	// Customers without bills still appear with zero consumption.
	assert.Equal(t, "MT-2002", ms[1].MeterNumber)
	assert.Zero(t, ms[1].TotalConsumption)
}
