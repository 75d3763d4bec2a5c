package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/metagrid-dev/metagrid/internal/auth"
	"github.com/metagrid-dev/metagrid/internal/storage/postgres"
)

type contextKey int

const identityKey contextKey = iota

// identityFrom extracts the authenticated identity from the request
// context. The boolean is false when the request was not authenticated.
func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

// requireAuth verifies the Bearer token and stores the identity in the
// request context. Requests without a valid token get 403.
func requireAuth(verifier auth.TokenVerifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusForbidden, "missing authorization")
			return
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusForbidden, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin rejects authenticated requests whose role is not admin.
// Must be wrapped inside requireAuth.
func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFrom(r.Context())
		if !ok || identity.Role != postgres.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	}
}
