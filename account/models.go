// Package account defines authentication identities and password handling.
package account

import (
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/types"
)

// Role scopes what an account may do.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// User is an authentication identity. Customer-role users carry a
// denormalized AccountNumber linking back to a Customer; the two records
// share the same identifier suffix convention in this implementation.
type User struct {
	types.Entity
	ID            id.AccountID  `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Role          Role          `json:"role"`
	AccountNumber string        `json:"account_number,omitempty"` // customer role only
	CustomerID    id.CustomerID `json:"customer_id,omitempty"`    // customer role only
	PasswordHash  string        `json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Profile is the customer-facing view of a user joined with its customer
// record.
type Profile struct {
	ID            id.AccountID `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone"`
	AccountNumber string       `json:"account_number"`
	MeterNumber   string       `json:"meter_number"`
}
