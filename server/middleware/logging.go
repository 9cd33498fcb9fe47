package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/dspcore/logger"
)

// quietPaths are polled by supervisors and not worth a log line each.
var quietPaths = []string{"/health", "/alive", "/ready"}

// RequestLogger logs method, path, status, size and duration of every
// request. A notification stream is logged once when the host disconnects,
// with the number of event batches it received.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isQuiet(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newRecordingWriter(w)
			next.ServeHTTP(rw, r)

			fields := rw.fields()
			fields["method"] = r.Method
			fields["path"] = r.URL.Path
			fields[logger.FieldDuration] = time.Since(start).Milliseconds()
			if id := r.Header.Get(HeaderRequestID); id != "" {
				fields[logger.FieldRequestID] = id
			}
			if rw.streaming {
				log.Info("Event stream closed", fields)
				return
			}
			logByStatus(log, fields, rw.status)
		})
	}
}

func isQuiet(path string) bool {
	for _, p := range quietPaths {
		if path == p || strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
