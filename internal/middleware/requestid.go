package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"escrow/internal/domain"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
)

// RequestID propagates X-Request-ID or mints a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Audit stores the request id and client country on the context so escrow events
// carry them into the audit trail. It must run after RequestID.
func Audit(lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meta := domain.AuditMeta{
				RequestID: RequestIDFromContext(r.Context()),
				Country:   ResolveCountry(r, lookup),
			}
			next.ServeHTTP(w, r.WithContext(domain.WithAuditMeta(r.Context(), meta)))
		})
	}
}
