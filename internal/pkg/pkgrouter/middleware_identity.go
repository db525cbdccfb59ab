package pkgrouter

import (
	"context"
	"net/http"
	"strings"
)

// HeaderUserID carries the owner identity resolved by the auth gateway in
// front of this service. The core trusts the value as-is; credential checks
// happen before a request ever reaches it.
const HeaderUserID = "X-User-ID"

type ownerContextKey struct{}

// Owner returns the owner identity stored in the request context, or "".
func Owner(ctx context.Context) string {
	owner, ok := ctx.Value(ownerContextKey{}).(string)
	if !ok {
		return ""
	}
	return owner
}

// WithOwner stores an owner identity into the context.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, owner)
}

// RequireIdentity rejects requests that arrive without a resolved owner
// identity. Endpoints that operate on per-owner state register with it.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if owner == "" {
			writeJSON(w, errorResponse{Error: "authentication required"}, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}
