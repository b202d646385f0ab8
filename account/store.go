package account

import (
	"context"

	"github.com/dee-mee/aquatrack/id"
)

// Store captures the persistence operations for users.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, accountID id.AccountID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListAdmins(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, accountID id.AccountID) error
}
