package middleware

import (
	"net/http"

	"github.com/kbukum/dspcore/util"
)

const defaultMaxBodySize = 1024 * 1024

// BodySizeLimit caps request bodies at maxSize (e.g. "64KB", "1MB").
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
