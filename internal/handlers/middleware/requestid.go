package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/saaskit/authcore/internal/reqctx"
)

const requestIDHeader = "X-Request-Id"

// RequestIDMiddleware establishes the correlation id for the request.
// A client-supplied valid uuid is honored (the action-request flow is
// addressed by it later), otherwise a fresh one is generated. The id is
// echoed in the response header either way.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, requestID)

			ctx := reqctx.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
