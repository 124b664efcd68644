package api

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-simulator/internal/engine"
	"github.com/nerrad567/gray-logic-simulator/internal/history"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Engine   *engine.Engine

	// History is optional; history routes answer 503 without it.
	History history.Repository

	// Metrics is served at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string

	// Hub is the event hub; the server creates one when nil.
	Hub *Hub

	// Checks are run by the health endpoint, keyed by dependency name.
	Checks map[string]HealthCheck

	Version string
}

// Server is the HTTP control API server.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	engine      *engine.Engine
	history     history.Repository
	metrics     http.Handler
	metricsPath string
	checks      map[string]HealthCheck
	version     string
	tickets     *ticketStore

	hub    *Hub
	ownHub bool

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New validates deps. Nothing listens until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger.Component("api"),
		engine:      deps.Engine,
		history:     deps.History,
		metrics:     deps.Metrics,
		metricsPath: cmp.Or(deps.MetricsPath, "/metrics"),
		checks:      deps.Checks,
		version:     deps.Version,
		tickets:     newTicketStore(),
		hub:         deps.Hub,
	}
	s.wsCfg.Path = cmp.Or(s.wsCfg.Path, "/ws")
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		s.ownHub = true
	}
	return s, nil
}

// Handler returns the router. It is what Start serves and what tests drive.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listen address, so a port in use fails here, and then
// serves in the background until Close. A hub created by New runs until
// ctx ends or Close.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	s.listener = ln

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	if s.ownHub {
		go s.hub.Run(srvCtx)
	}
	go s.cleanTicketsLoop(srvCtx)

	timeout := func(sec int) time.Duration { return time.Duration(sec) * time.Second }
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       timeout(s.cfg.Timeouts.Read),
		ReadHeaderTimeout: timeout(s.cfg.Timeouts.Read),
		WriteTimeout:      timeout(s.cfg.Timeouts.Write),
		IdleTimeout:       timeout(s.cfg.Timeouts.Idle),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server listening", "address", ln.Addr().String(), "tls", true)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server listening", "address", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address, useful with port 0. Empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close drains in-flight requests for up to gracefulShutdownTimeout.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
