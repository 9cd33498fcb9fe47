// Package server is the host-facing HTTP server: gin on a root mux with
// cleartext HTTP/2, a middleware chain and lifecycle integration through
// component.Component.
//
// Middleware (server/middleware): recovery, request id, CORS, body size
// limit, request logging.
//
// Endpoints (server/endpoint): /health, /alive, /ready, /version.
package server
