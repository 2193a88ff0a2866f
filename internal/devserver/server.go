// Package devserver exposes a devtools bridge over HTTP and WebSocket.
//
// Routes:
//
//	GET /devtools  WebSocket; outbound log messages are broadcast to every
//	               connected inspector, inbound JSON goes to Bridge.Receive
//	GET /healthz   bridge stats and connected inspector count
//	GET /history   the store history view, if one was configured
//	GET /metrics   Prometheus exposition, if metrics were configured
//
// Server implements devtools.Transport, so it is handed to Bridge.Run.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/rewind/internal/devtools"
	"github.com/roach88/rewind/internal/telemetry"
)

// DefaultWriteTimeout bounds a single WebSocket write when the send
// context has no earlier deadline.
const DefaultWriteTimeout = 5 * time.Second

// ErrNoInspector is returned by Send when no inspector is connected.
var ErrNoInspector = errors.New("no devtools inspector connected")

// Server serves the devtools protocol.
type Server struct {
	bridge       *devtools.Bridge
	engine       *gin.Engine
	upgrader     websocket.Upgrader
	history      func() any
	metrics      *telemetry.Metrics
	logger       *slog.Logger
	writeTimeout time.Duration

	mu    sync.RWMutex
	conns map[string]*inspector
}

// inspector is one connected WebSocket client. gorilla/websocket allows one
// concurrent writer, so writes go through mu.
type inspector struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithHistory serves the value returned by fn as JSON on /history.
func WithHistory(fn func() any) Option {
	return func(s *Server) {
		s.history = fn
	}
}

// WithMetrics serves m's registry on /metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the server logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWriteTimeout bounds each WebSocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// New creates a server for bridge.
func New(bridge *devtools.Bridge, opts ...Option) *Server {
	s := &Server{
		bridge: bridge,
		upgrader: websocket.Upgrader{
			// Inspectors run as local browser extensions or tools.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:       slog.Default(),
		writeTimeout: DefaultWriteTimeout,
		conns:        make(map[string]*inspector),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/devtools", s.handleDevTools)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/history", s.handleHistory)
	if s.metrics != nil {
		handler := promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})
		s.engine.GET("/metrics", gin.WrapH(handler))
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Inspectors returns the number of connected inspectors.
func (s *Server) Inspectors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Send broadcasts msg to every connected inspector. Failed connections are
// dropped; their errors are joined.
func (s *Server) Send(ctx context.Context, msg devtools.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode devtools message: %w", err)
	}

	s.mu.RLock()
	targets := make([]*inspector, 0, len(s.conns))
	for _, c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	if len(targets) == 0 {
		return ErrNoInspector
	}

	deadline := time.Now().Add(s.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var errs []error
	for _, c := range targets {
		if err := c.write(payload, deadline); err != nil {
			s.logger.Warn("devtools write failed", "session", c.id, "error", err)
			s.drop(c)
			errs = append(errs, fmt.Errorf("session %s: %w", c.id, err))
		}
	}
	return errors.Join(errs...)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("devtools server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown devtools server: %w", err)
		}
		return nil
	}
}

func (s *Server) register(ws *websocket.Conn) *inspector {
	c := &inspector{id: uuid.New().String(), ws: ws}
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	return c
}

func (s *Server) drop(c *inspector) {
	s.mu.Lock()
	_, ok := s.conns[c.id]
	delete(s.conns, c.id)
	s.mu.Unlock()
	if ok {
		c.ws.Close()
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[string]*inspector)
	s.mu.Unlock()
	for _, c := range conns {
		c.ws.Close()
	}
}

func (c *inspector) write(payload []byte, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}
