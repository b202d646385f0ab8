package mongo

import (
	"fmt"
	"time"

	"github.com/dee-mee/aquatrack/account"
	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/types"
)

// ==================== Customer models ====================

type customerModel struct {
	ID              string    `bson:"_id"`
	Name            string    `bson:"name"`
	AccountNumber   string    `bson:"account_number"`
	MeterNumber     string    `bson:"meter_number"`
	Phone           string    `bson:"phone"`
	LastReading     int64     `bson:"last_reading"`
	LastReadingDate time.Time `bson:"last_reading_date"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func toCustomerModel(c *customer.Customer) *customerModel {
	return &customerModel{
		ID:              c.ID.String(),
		Name:            c.Name,
		AccountNumber:   c.AccountNumber,
		MeterNumber:     c.MeterNumber,
		Phone:           c.Phone,
		LastReading:     c.LastReading,
		LastReadingDate: c.LastReadingDate,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromCustomerModel(m *customerModel) (*customer.Customer, error) {
	customerID, err := id.ParseCustomerID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: corrupt customer id %q: %w", m.ID, err)
	}

	return &customer.Customer{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              customerID,
		Name:            m.Name,
		AccountNumber:   m.AccountNumber,
		MeterNumber:     m.MeterNumber,
		Phone:           m.Phone,
		LastReading:     m.LastReading,
		LastReadingDate: m.LastReadingDate,
	}, nil
}

// ==================== Bill models ====================

type billModel struct {
	ID              string     `bson:"_id"`
	CustomerID      string     `bson:"customer_id"`
	Period          string     `bson:"period"`
	PreviousReading int64      `bson:"previous_reading"`
	CurrentReading  int64      `bson:"current_reading"`
	Consumption     int64      `bson:"consumption"`
	RateCents       int64      `bson:"rate_cents"`
	AmountDueCents  int64      `bson:"amount_due_cents"`
	Currency        string     `bson:"currency"`
	DueDate         time.Time  `bson:"due_date"`
	Status          string     `bson:"status"`
	Approved        bool       `bson:"approved"`
	PaidAt          *time.Time `bson:"paid_at,omitempty"`
	PaymentRef      string     `bson:"payment_ref"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func toBillModel(b *bill.Bill) *billModel {
	return &billModel{
		ID:              b.ID.String(),
		CustomerID:      b.CustomerID.String(),
		Period:          b.Period,
		PreviousReading: b.PreviousReading,
		CurrentReading:  b.CurrentReading,
		Consumption:     b.Consumption,
		RateCents:       b.Rate.Amount,
		AmountDueCents:  b.AmountDue.Amount,
		Currency:        b.Rate.Currency,
		DueDate:         b.DueDate,
		Status:          string(b.Status),
		Approved:        b.Approved,
		PaidAt:          b.PaidAt,
		PaymentRef:      b.PaymentRef,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func fromBillModel(m *billModel) (*bill.Bill, error) {
	billID, err := id.ParseBillID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: corrupt bill id %q: %w", m.ID, err)
	}
	customerID, err := id.ParseCustomerID(m.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: corrupt customer id %q: %w", m.CustomerID, err)
	}

	return &bill.Bill{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              billID,
		CustomerID:      customerID,
		Period:          m.Period,
		PreviousReading: m.PreviousReading,
		CurrentReading:  m.CurrentReading,
		Consumption:     m.Consumption,
		Rate:            types.Money{Amount: m.RateCents, Currency: m.Currency},
		AmountDue:       types.Money{Amount: m.AmountDueCents, Currency: m.Currency},
		DueDate:         m.DueDate,
		Status:          bill.Status(m.Status),
		Approved:        m.Approved,
		PaidAt:          m.PaidAt,
		PaymentRef:      m.PaymentRef,
	}, nil
}

// ==================== User models ====================

type userModel struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	Email         string    `bson:"email"`
	Role          string    `bson:"role"`
	AccountNumber string    `bson:"account_number"`
	CustomerID    string    `bson:"customer_id,omitempty"`
	PasswordHash  string    `bson:"password_hash"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toUserModel(u *account.User) *userModel {
	m := &userModel{
		ID:            u.ID.String(),
		Name:          u.Name,
		Email:         u.Email,
		Role:          string(u.Role),
		AccountNumber: u.AccountNumber,
		PasswordHash:  u.PasswordHash,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if !u.CustomerID.IsNil() {
		m.CustomerID = u.CustomerID.String()
	}
	return m
}

func fromUserModel(m *userModel) (*account.User, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: corrupt account id %q: %w", m.ID, err)
	}

	u := &account.User{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            accountID,
		Name:          m.Name,
		Email:         m.Email,
		Role:          account.Role(m.Role),
		AccountNumber: m.AccountNumber,
		PasswordHash:  m.PasswordHash,
	}
	if m.CustomerID != "" {
		if u.CustomerID, err = id.ParseCustomerID(m.CustomerID); err != nil {
			return nil, fmt.Errorf("aquatrack/mongo: corrupt customer id %q: %w", m.CustomerID, err)
		}
	}
	return u, nil
}
