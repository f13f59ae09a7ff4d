package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Budget is a token bucket: a steady refill rate and the burst it can hold.
type Budget struct {
	PerSecond float64
	Burst     int
}

func (b Budget) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(b.PerSecond), b.Burst)
}

// LimitConfig sets the per-client budgets of the API.
type LimitConfig struct {
	Read  Budget // state, history and health routes
	Input Budget // POST /api/input; a held key repeats several times a second

	// IdleTTL drops the buckets of a client unseen for this long.
	IdleTTL time.Duration
}

// DefaultLimits suits a handful of spectators and one or two players.
var DefaultLimits = LimitConfig{
	Read:    Budget{PerSecond: 20, Burst: 40},
	Input:   Budget{PerSecond: 60, Burst: 120},
	IdleTTL: 10 * time.Minute,
}

type clientBuckets struct {
	read  *rate.Limiter
	input *rate.Limiter
	seen  time.Time
}

// ClientLimiter throttles API requests by client address.
type ClientLimiter struct {
	cfg LimitConfig

	mu      sync.Mutex
	clients map[string]*clientBuckets

	quit     chan struct{}
	quitOnce sync.Once

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewClientLimiter fills zero budgets from DefaultLimits. No goroutine runs
// until StartSweeper.
func NewClientLimiter(cfg LimitConfig) *ClientLimiter {
	if cfg.Read.PerSecond <= 0 {
		cfg.Read = DefaultLimits.Read
	}
	if cfg.Input.PerSecond <= 0 {
		cfg.Input = DefaultLimits.Input
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultLimits.IdleTTL
	}
	return &ClientLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientBuckets),
		quit:    make(chan struct{}),
	}
}

// StartSweeper periodically forgets idle clients until Stop.
func (l *ClientLimiter) StartSweeper() {
	go func() {
		t := time.NewTicker(l.cfg.IdleTTL / 2)
		defer t.Stop()
		for {
			select {
			case <-l.quit:
				return
			case now := <-t.C:
				l.sweep(now)
			}
		}
	}()
}

// Stop ends the sweeper. It is safe to call more than once.
func (l *ClientLimiter) Stop() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// Allow spends one token from the read or input bucket of addr.
func (l *ClientLimiter) Allow(addr string, input bool) bool {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.clients[addr]
	if !ok {
		b = &clientBuckets{read: l.cfg.Read.limiter(), input: l.cfg.Input.limiter()}
		l.clients[addr] = b
	}
	b.seen = now
	bucket := b.read
	if input {
		bucket = b.input
	}
	l.mu.Unlock()

	if bucket.AllowN(now, 1) {
		l.allowed.Add(1)
		return true
	}
	l.rejected.Add(1)
	return false
}

// sweep forgets clients idle for IdleTTL and returns how many it dropped.
func (l *ClientLimiter) sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for addr, b := range l.clients {
		if now.Sub(b.seen) >= l.cfg.IdleTTL {
			delete(l.clients, addr)
			n++
		}
	}
	return n
}

// Middleware answers 429 once a client exhausts its budget. Key input is
// charged to the input bucket, everything else to the read bucket.
func (l *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		input := r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/input")
		if !l.Allow(ClientAddr(r), input) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			writeError(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stats reports request counters and the number of tracked clients.
func (l *ClientLimiter) Stats() map[string]uint64 {
	l.mu.Lock()
	tracked := len(l.clients)
	l.mu.Unlock()
	return map[string]uint64{
		"allowed":  l.allowed.Load(),
		"rejected": l.rejected.Load(),
		"clients":  uint64(tracked),
	}
}

// ClientAddr returns the address a request is attributed to. Proxy headers
// are trusted, so a public deployment needs a proxy that overwrites them.
func ClientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ConnLimiter caps concurrent websocket connections per IP
type ConnLimiter struct {
	connections sync.Map // map[string]*atomic.Int32
	maxPerIP    int

	rejectedCount atomic.Uint64
}

// NewConnLimiter creates a websocket connection limiter
func NewConnLimiter(maxPerIP int) *ConnLimiter {
	return &ConnLimiter{maxPerIP: maxPerIP}
}

// Allow reserves a connection slot for ip.
func (cl *ConnLimiter) Allow(ip string) bool {
	actual, _ := cl.connections.LoadOrStore(ip, new(atomic.Int32))
	counter := actual.(*atomic.Int32)

	for {
		current := counter.Load()
		if int(current) >= cl.maxPerIP {
			cl.rejectedCount.Add(1)
			return false
		}
		if counter.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release frees a slot reserved by Allow.
func (cl *ConnLimiter) Release(ip string) {
	if v, ok := cl.connections.Load(ip); ok {
		v.(*atomic.Int32).Add(-1)
	}
}

// Count returns the open connections of ip.
func (cl *ConnLimiter) Count(ip string) int {
	if v, ok := cl.connections.Load(ip); ok {
		return int(v.(*atomic.Int32).Load())
	}
	return 0
}

// OriginPolicy decides which browser origins may open a websocket.
type OriginPolicy struct {
	allowed []string
}

// NewOriginPolicy builds a policy from exact origins. "*" allows any origin
// and an entry ending in ":*" allows any port of that host.
func NewOriginPolicy(origins []string) OriginPolicy {
	return OriginPolicy{allowed: origins}
}

// Allowed reports whether origin may connect. Requests without an Origin
// header come from non-browser clients and are allowed.
func (p OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, a := range p.allowed {
		switch {
		case a == "*", a == origin:
			return true
		case strings.HasSuffix(a, ":*"):
			host := strings.TrimSuffix(a, "*")
			if strings.HasPrefix(origin, host) {
				return true
			}
		}
	}
	return false
}
