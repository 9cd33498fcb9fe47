package middleware

import (
	"net/http"
	"strings"
)

// recordingWriter captures what a handler sent: the status, the body size
// and, for the notification stream, how many times events were flushed to
// the host. Flush and Unwrap reach the underlying writer so the SSE handler
// can keep streaming through it.
type recordingWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	flushes     int
	streaming   bool
	wroteHeader bool
}

func newRecordingWriter(w http.ResponseWriter) *recordingWriter {
	return &recordingWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
		rw.streaming = strings.HasPrefix(rw.Header().Get("Content-Type"), "text/event-stream")
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

func (rw *recordingWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		rw.flushes++
		f.Flush()
	}
}

func (rw *recordingWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// fields returns the log fields describing the response.
func (rw *recordingWriter) fields() map[string]interface{} {
	f := map[string]interface{}{
		"status": rw.status,
		"bytes":  rw.bytes,
	}
	if rw.streaming {
		f["events"] = rw.flushes
	}
	return f
}
