package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"that-night/internal/game"
)

// Simulation is the part of the engine the API reads and feeds.
type Simulation interface {
	GetSnapshot() *game.GameSnapshot
	Submit(in game.Intent) bool
	Record() game.Record
	GetEventLogStats() map[string]interface{}
}

// RunHistory is the persisted list of finished runs.
type RunHistory interface {
	TopRuns(n int) ([]game.RunSummary, error)
	RunCount() (int, error)
}

// MinimapRenderer draws a snapshot as PNG.
type MinimapRenderer interface {
	EncodePNG(w io.Writer, snap *game.GameSnapshot) error
}

// localOrigins are allowed when RouterConfig.CORSOrigins is nil.
var localOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

// RouterConfig wires the router. Only Engine is required.
type RouterConfig struct {
	Engine      Simulation
	Runs        RunHistory
	Leaderboard *game.Leaderboard
	Minimap     MinimapRenderer

	// Limiter is shared with a Server so it can sweep and stop it. When nil
	// the router builds its own from Limits.
	Limiter *ClientLimiter
	Limits  *LimitConfig

	CORSOrigins []string

	// Auth guards POST /api/input. Nil leaves it open.
	Auth *TokenAuth

	DisableLogging bool
}

func (cfg RouterConfig) limiter() *ClientLimiter {
	if cfg.Limiter != nil {
		return cfg.Limiter
	}
	limits := DefaultLimits
	if cfg.Limits != nil {
		limits = *cfg.Limits
	}
	return NewClientLimiter(limits)
}

func (cfg RouterConfig) corsHandler() func(http.Handler) http.Handler {
	origins := cfg.CORSOrigins
	if origins == nil {
		origins = localOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})
}

type routerHandlers struct {
	engine      Simulation
	runs        RunHistory
	leaderboard *game.Leaderboard
	minimap     MinimapRenderer
}

// NewRouter builds the HTTP API. It starts no goroutines, so it can be
// served straight from httptest.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer, requestMetrics)
	// Throttle before CORS so floods are refused early.
	r.Use(cfg.limiter().Middleware, cfg.corsHandler())

	auth := cfg.Auth
	if auth == nil {
		auth = NewTokenAuth("")
	}
	h := &routerHandlers{
		engine:      cfg.Engine,
		runs:        cfg.Runs,
		leaderboard: cfg.Leaderboard,
		minimap:     cfg.Minimap,
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/state", h.handleGetState)
		api.Get("/stats", h.handleGetStats)
		api.Get("/player", h.handleGetPlayer)
		api.Get("/upgrades", h.handleGetUpgrades)
		api.Get("/record", h.handleGetRecord)
		api.Get("/weapons", h.handleGetWeapons)
		api.Get("/minimap.png", h.handleGetMinimap)

		api.Get("/runs", h.handleGetRuns)
		api.Get("/runs/{id}", h.handleGetRunRank)

		api.With(auth.Middleware).Post("/input", h.handleInput)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	return r
}
