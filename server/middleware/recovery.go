package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/dspcore/logger"
)

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("Panic recovered", map[string]interface{}{
						"error":  fmt.Sprintf("%v", rec),
						"stack":  string(debug.Stack()),
						"path":   r.URL.Path,
						"method": r.Method,
					})
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
