package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"that-night/internal/config"
)

// TestIsLoopback tests debug address classification
func TestIsLoopback(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:6060", true},
		{"localhost:6060", true},
		{"[::1]:6060", true},
		{"0.0.0.0:6060", false},
		{":6060", false},
		{"10.1.2.3:6060", false},
		{"no-port", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := isLoopback(tt.addr); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestDebugHandler tests the debug routes and their basic auth
func TestDebugHandler(t *testing.T) {
	get := func(h http.Handler, path, user, pass string) int {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		if user != "" {
			r.SetBasicAuth(user, pass)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	open := DebugHandler(config.DefaultDebug())
	for _, path := range []string{"/health", "/metrics", "/debug/pprof/"} {
		if code := get(open, path, "", ""); code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, code)
		}
	}

	cfg := config.DefaultDebug()
	cfg.User, cfg.Pass = "ops", "hunter2"
	guarded := DebugHandler(cfg)
	if code := get(guarded, "/health", "", ""); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", code)
	}
	if code := get(guarded, "/health", "ops", "wrong"); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with a wrong password, got %d", code)
	}
	if code := get(guarded, "/health", "ops", "hunter2"); code != http.StatusOK {
		t.Errorf("Expected 200 with credentials, got %d", code)
	}
}
