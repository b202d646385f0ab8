package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dee-mee/aquatrack/account"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/types"
)

func newTestUser(role account.Role) *account.User {
	return &account.User{
		Entity: types.NewEntity(),
		ID:     id.NewAccountID(),
		Name:   "Jane",
		Email:  "jane@example.com",
		Role:   role,
	}
}

func TestGenerateAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", "aquatrack", time.Hour)
	u := newTestUser(account.RoleAdmin)

	token, err := tm.Generate(u)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.AccountID)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, account.RoleAdmin, claims.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", "aquatrack", time.Hour)
	other := NewTokenManager("other-secret", "aquatrack", time.Hour)

	token, err := tm.Generate(newTestUser(account.RoleCustomer))
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", "aquatrack", -time.Minute)

	token, err := tm.Generate(newTestUser(account.RoleCustomer))
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	tm := NewTokenManager("test-secret", "aquatrack", time.Hour)
	foreign := NewTokenManager("test-secret", "someone-else", time.Hour)

	token, err := foreign.Generate(newTestUser(account.RoleCustomer))
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", "aquatrack", time.Hour)

	_, err := tm.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
