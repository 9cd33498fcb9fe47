package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/dspcore/logger"
)

// ClientPrefix is prepended to every host subscription id, so "host:*"
// reaches all hosts.
const ClientPrefix = "host:"

var keepAliveInterval = 15 * time.Second

// Handler subscribes the caller to the hub. The client id is taken from the
// "client" query parameter or generated.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("client")
		if id == "" {
			id = uuid.New().String()
		}
		ServeSSE(hub, c.Writer, c.Request, ClientPrefix+id, WithMetadata("remote_addr", c.ClientIP()))
	}
}

// ServeSSE streams events for one client until the request ends or the hub
// stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, opts ...ClientOption) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	log := hub.log.WithFields(logger.Fields("client_id", clientID))

	// Long-lived: the server's write timeout must not apply.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not clear write deadline", logger.MergeWithError(nil, err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(clientID, opts...)
	if !hub.Register(client) {
		http.Error(w, "event hub stopped", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	hello, err := NewEvent(EventTypeConnected, ConnectedEvent{
		ClientID: clientID,
		Metadata: client.Metadata(),
		Time:     time.Now().UTC(),
	})
	if err == nil {
		write(w, hello)
		flusher.Flush()
	}
	log.Debug("client connected")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("client disconnected")
			return
		case ev, ok := <-client.Events():
			if !ok {
				return
			}
			write(w, ev)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": %s %d\n\n", EventTypeKeepAlive, time.Now().Unix())
			flusher.Flush()
		}
	}
}

func write(w http.ResponseWriter, ev Event) {
	if ev.Type != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", ev.Data)
}
