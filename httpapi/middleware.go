package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dee-mee/aquatrack/account"
	"github.com/dee-mee/aquatrack/auth"
)

type ctxKey int

const claimsKey ctxKey = iota

// ClaimsFrom extracts the verified token claims from a request context.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// requireAuth verifies the Bearer token and stores the claims on the context.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			h.respondErr(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			h.respondErr(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

// requireAdmin is requireAuth plus an admin role gate.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFrom(r.Context())
		if claims == nil || claims.Role != account.RoleAdmin {
			h.respondErr(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}
