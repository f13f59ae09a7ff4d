package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"that-night/internal/logger"
)

// ServerConfig bundles the router and hub settings.
type ServerConfig struct {
	Router            RouterConfig
	Hub               HubConfig
	BroadcastInterval time.Duration
}

// Server is the HTTP API server with WebSocket support.
type Server struct {
	cfg         ServerConfig
	router      *chi.Mux
	hub         *WebSocketHub
	limiter     *ClientLimiter
	httpServer  *http.Server
}

// NewServer builds the router and hub.
//
// Background workers do not start until Start is called, so a server can be
// constructed in tests and driven through Router.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{cfg: cfg}

	s.limiter = cfg.Router.limiter()
	cfg.Router.Limiter = s.limiter

	if cfg.Hub.Auth == nil {
		cfg.Hub.Auth = cfg.Router.Auth
	}
	s.hub = NewWebSocketHub(cfg.Router.Engine, cfg.Hub)
	s.router = NewRouter(cfg.Router)
	s.router.Get("/ws", s.hub.HandleWebSocket)

	return s
}

// Start launches the background workers and serves addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.limiter.StartSweeper()
	s.hub.StartBroadcastLoop(s.cfg.BroadcastInterval)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Log.WithField("addr", addr).Info("api server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.hub
}

// Shutdown stops the listener and background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	s.limiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
