package api

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"that-night/internal/config"
	"that-night/internal/game"
	"that-night/internal/logger"
)

const metricsNamespace = "that_night"

// Every label below takes a fixed set of values.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "tick_duration_seconds",
		Help:      "Time spent in one simulation tick",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.016},
	})

	entityCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "entities",
		Help:      "Live entities by kind",
	}, []string{"kind"})

	killsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "kills_total",
		Help:      "Enemies killed by enemy kind and weapon",
	}, []string{"kind", "weapon"})

	deathsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "deaths_total",
		Help:      "Finished runs by cause of death",
	}, []string{"cause"})

	lastScore = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "last_run_score",
		Help:      "Score of the most recently finished run",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "event_log_dropped",
		Help:      "Events the event log dropped since start",
	})

	// reason: rate_limit, origin, ws_total_limit, ws_ip_limit, auth
	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "api",
		Name:      "rejected_total",
		Help:      "Requests and websocket upgrades refused",
	}, []string{"reason"})

	// route is the chi pattern, never the raw path.
	routeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "api",
		Name:      "request_seconds",
		Help:      "API latency by route",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"method", "route", "code"})

	spectators = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "ws",
		Name:      "clients",
		Help:      "Open websocket clients",
	})

	// direction: in, out
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "ws",
		Name:      "frames_total",
		Help:      "Websocket frames by direction",
	}, []string{"direction"})
)

// SimMetrics feeds engine activity into Prometheus. It implements
// game.Observer.
type SimMetrics struct{}

// ObserveTick records the duration and entity counts of a tick.
func (SimMetrics) ObserveTick(s game.TickStats) {
	tickDuration.Observe(s.Duration.Seconds())
	for kind, n := range map[string]int{
		"enemies": s.Enemies,
		"bullets": s.Bullets,
		"bombs":   s.Bombs,
		"turrets": s.Turrets,
		"emps":    s.Emps,
		"chests":  s.Chests,
	} {
		entityCount.WithLabelValues(kind).Set(float64(n))
	}
	eventLogDropped.Set(float64(s.Dropped))
}

// ObserveKill counts a kill.
func (SimMetrics) ObserveKill(kind game.EnemyKind, src game.Weapon) {
	killsTotal.WithLabelValues(kind.String(), src.String()).Inc()
}

// ObserveDeath counts a finished run.
func (SimMetrics) ObserveDeath(cause string, score int) {
	deathsTotal.WithLabelValues(cause).Inc()
	lastScore.Set(float64(score))
}

// isLoopback reports whether addr binds to the local machine only.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip, err := netip.ParseAddr(host)
	return err == nil && ip.IsLoopback()
}

// DebugHandler serves /debug/pprof, /metrics and /health, behind basic
// auth when a user is configured.
func DebugHandler(cfg config.DebugConfig) http.Handler {
	r := chi.NewRouter()
	if cfg.User != "" {
		r.Use(middleware.BasicAuth("debug", map[string]string{cfg.User: cfg.Pass}))
	}
	r.Mount("/debug", middleware.Profiler())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})
	return r
}

// StartDebugServer serves DebugHandler in the background. A non-loopback
// address falls back to the default unless cfg.External is set.
func StartDebugServer(cfg config.DebugConfig) {
	log := logger.Log.WithField("component", "debug")
	if !cfg.Enabled {
		log.Info("debug server disabled")
		return
	}
	if !cfg.External && !isLoopback(cfg.Addr) {
		log.WithField("requested", cfg.Addr).Warn("debug server kept on loopback")
		cfg.Addr = config.DefaultDebug().Addr
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           DebugHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.Addr).Info("debug server starting")
		if err := srv.ListenAndServe(); err != nil {
			log.WithError(err).Warn("debug server stopped")
		}
	}()
}

// requestMetrics times every request under its route pattern.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		routeLatency.WithLabelValues(r.Method, route, strconv.Itoa(code)).Observe(time.Since(start).Seconds())
	})
}

// RecordConnectionRejected counts a refused request or upgrade.
func RecordConnectionRejected(reason string) {
	rejectedTotal.WithLabelValues(reason).Inc()
}

func setSpectators(n int) {
	spectators.Set(float64(n))
}

func countFrame(direction string) {
	framesTotal.WithLabelValues(direction).Inc()
}
