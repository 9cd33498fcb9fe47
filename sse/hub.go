package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/dspcore/logger"
)

// clientQueue is the per-client backlog before events are dropped.
const clientQueue = 64

// Client is one subscribed host connection.
type Client struct {
	id       string
	metadata map[string]string
	events   chan Event
	log      *logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetadata adds a metadata key-value pair to the client.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) {
		c.metadata[key] = value
	}
}

// NewClient creates a client with the given id.
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		metadata: make(map[string]string),
		events:   make(chan Event, clientQueue),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ID() string                    { return c.id }
func (c *Client) Metadata() map[string]string   { return c.metadata }
func (c *Client) GetMetadata(key string) string { return c.metadata[key] }
func (c *Client) Events() <-chan Event          { return c.events }
func (c *Client) Close()                        { close(c.events) }

// Send queues ev. It returns false and drops ev when the client is behind.
func (c *Client) Send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		c.log.Warn("client behind, dropping event", logger.Fields("client_id", c.id, "event", ev.Type))
		return false
	}
}

// message is a pending publish.
type message struct {
	pattern string
	event   Event
}

// Hub routes published events to matching clients. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopped    bool
	mu         sync.RWMutex
	log        *logger.Logger
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a hub. Call Run to start routing.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        log.WithComponent("sse"),
	}
}

// Run routes events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			client.log = h.log
			h.mu.Lock()
			if old, ok := h.clients[client.id]; ok {
				old.Close()
			}
			h.clients[client.id] = client
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", client.id, "total_clients", n))

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.id]; ok && cur == client {
				delete(h.clients, client.id)
				client.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", client.id, "total_clients", n))

		case msg := <-h.broadcast:
			h.route(msg)
		}
	}
}

// Stop closes every client and makes Run return. Safe to call twice.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.stopped {
		h.stopped = true
		close(h.done)
	}
}

// Done is closed once Stop was called.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.Close()
		delete(h.clients, id)
	}
}

// Register adds a client. It returns false once the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client. It is a no-op once the hub is stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues ev for every client whose id matches pattern.
func (h *Hub) Publish(pattern string, ev Event) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- message{pattern: pattern, event: ev}:
		return true
	default:
		h.log.Warn("publish queue full, dropping event", logger.Fields("pattern", pattern, "event", ev.Type))
		return false
	}
}

func (h *Hub) route(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	matched := 0
	for id, client := range h.clients {
		ok, err := filepath.Match(msg.pattern, id)
		if err != nil {
			h.log.Error("bad pattern", logger.MergeWithError(logger.Fields("pattern", msg.pattern), err))
			return
		}
		if ok && client.Send(msg.event) {
			matched++
		}
	}
	h.log.Debug("event routed", logger.Fields("event", msg.event.Type, "pattern", msg.pattern, "match_count", matched))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the connected client ids.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Client returns a client by id, or nil.
func (h *Hub) Client(id string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}
