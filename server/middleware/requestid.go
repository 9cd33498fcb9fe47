package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/dspcore/logger"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

// RequestID makes sure every request has an X-Request-Id. The id is set on
// the request headers, echoed on the response and stored in the context for
// logger.WithContext.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.New().String()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(logger.ContextWithRequestID(r.Context(), id)))
		})
	}
}
