package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/server/endpoint"
	"github.com/kbukum/dspcore/server/middleware"
)

// Server is the host-facing HTTP server: a gin engine mounted on a root mux,
// served over HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	mux        *http.ServeMux
	h2s        *http2.Server
	config     Config
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server. No middleware is applied until ApplyMiddleware.
func New(cfg Config, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	mux := http.NewServeMux()
	mux.Handle("/", engine)

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h2c.NewHandler(mux, h2s),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		mux:        mux,
		h2s:        h2s,
		config:     cfg,
		log:        log.WithComponent("server"),
	}
}

// GinEngine returns the gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the full handler chain, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Handle mounts an http.Handler next to gin on the root mux.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
	s.log.Debug("Handler mounted", map[string]interface{}{
		"pattern": pattern,
	})
}

// Start binds the port and serves in a goroutine. It returns once the
// listener is bound.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr": listener.Addr().String(),
	})
	return nil
}

// Stop shuts the server down with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down")
	return nil
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// ApplyMiddleware wraps the root mux with recovery, request id, CORS,
// body size limit and request logging.
func (s *Server) ApplyMiddleware() {
	chain := []middleware.Middleware{
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.CORS(&s.config.CORS),
	}
	if s.config.MaxBodySize != "" {
		chain = append(chain, middleware.BodySizeLimit(s.config.MaxBodySize))
	}
	chain = append(chain, middleware.RequestLogger(s.log))
	s.httpServer.Handler = h2c.NewHandler(middleware.Chain(chain...)(s.mux), s.h2s)
}

// RegisterDefaultEndpoints registers /health, /alive, /ready and /version.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/alive", endpoint.Liveness(serviceName))
	s.engine.GET("/ready", endpoint.Readiness(serviceName, checker))
	s.engine.GET("/version", endpoint.Version())
}

// ApplyDefaults applies the middleware stack and the default endpoints.
func (s *Server) ApplyDefaults(serviceName string, checker endpoint.HealthChecker) {
	s.ApplyMiddleware()
	s.RegisterDefaultEndpoints(serviceName, checker)
}
