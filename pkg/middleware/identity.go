package middleware

import (
	"context"
	"net/http"
)

// UserIDHeader carries the authenticated user's ID, injected by the API
// gateway after it validates the caller's token. This service trusts the
// header; it never sees raw credentials.
const UserIDHeader = "X-User-ID"

type contextKey string

const customerIDKey contextKey = "customer_id"

// Identity returns middleware that extracts the gateway-injected user ID
// header into the request context. Requests without the header pass through
// unauthenticated; handlers that require an identity reject them.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(UserIDHeader); id != "" {
				r = r.WithContext(context.WithValue(r.Context(), customerIDKey, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CustomerIDFromContext returns the authenticated customer ID, or "" when the
// request carried no identity.
func CustomerIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(customerIDKey).(string); ok {
		return id
	}
	return ""
}
