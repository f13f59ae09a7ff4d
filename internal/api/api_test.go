package api_test

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"that-night/internal/api"
	"that-night/internal/game"
	"that-night/internal/render"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// MockEngine implements api.Simulation for testing
type MockEngine struct {
	mu        sync.Mutex
	snap      *game.GameSnapshot
	rec       game.Record
	full      bool
	submitted chan game.Intent
}

func NewMockEngine() *MockEngine {
	snap := &game.GameSnapshot{
		Sequence:   1,
		TickNumber: 42,
		RunID:      "run-1",
		MapWidth:   400,
		MapHeight:  400,
		ViewX:      10,
		ViewY:      20,
		ViewWidth:  5,
		ViewHeight: 3,
		Tiles:      make([]game.TileSnapshot, 15),
		Player:     game.PlayerSnapshot{X: 12, Y: 21, Character: "Joshua", Killed: 7},
		EnemyCount: 1024,
		ChestCount: 480,
	}
	snap.Player.Stats[game.StatScore] = 150

	rec := game.NewRecord()
	rec.Highscore = 900

	return &MockEngine{
		snap:      snap,
		rec:       rec,
		submitted: make(chan game.Intent, 16),
	}
}

func (m *MockEngine) GetSnapshot() *game.GameSnapshot {
	return m.snap
}

func (m *MockEngine) Submit(in game.Intent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full || in.Action >= game.ActionCount {
		return false
	}
	select {
	case m.submitted <- in:
	default:
	}
	return true
}

func (m *MockEngine) Record() game.Record {
	return m.rec
}

func (m *MockEngine) GetEventLogStats() map[string]interface{} {
	return map[string]interface{}{"written": uint64(3), "dropped": uint64(0)}
}

// MockHistory implements api.RunHistory for testing
type MockHistory struct {
	runs []game.RunSummary
	err  error
}

func (m *MockHistory) TopRuns(n int) ([]game.RunSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.runs[:min(n, len(m.runs))], nil
}

func (m *MockHistory) RunCount() (int, error) {
	return len(m.runs), m.err
}

var fastLimits = &api.LimitConfig{
	Read:    api.Budget{PerSecond: 1000, Burst: 1000},
	Input:   api.Budget{PerSecond: 1000, Burst: 1000},
	IdleTTL: time.Hour,
}

func newTestServer(t *testing.T, cfg api.RouterConfig) *httptest.Server {
	t.Helper()
	if cfg.Limits == nil {
		cfg.Limits = fastLimits
	}
	cfg.DisableLogging = true
	ts := httptest.NewServer(api.NewRouter(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// ============================================================================
// Router Tests
// ============================================================================

// TestNewRouterHasNoSideEffects verifies that router construction starts
// nothing and returns a usable mux.
func TestNewRouterHasNoSideEffects(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{
		Engine:         NewMockEngine(),
		Limits:         fastLimits,
		DisableLogging: true,
	})
	if router == nil {
		t.Fatal("Router should not be nil")
	}
}

// TestAPIGetState tests the full snapshot endpoint
func TestAPIGetState(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	var result map[string]interface{}
	if code := getJSON(t, ts.URL+"/api/state", &result); code != http.StatusOK {
		t.Errorf("Expected 200, got %d", code)
	}

	if result["tick"] != float64(42) {
		t.Errorf("Expected tick 42, got %v", result["tick"])
	}
	if result["runId"] != "run-1" {
		t.Errorf("Expected runId run-1, got %v", result["runId"])
	}
	tiles, ok := result["tiles"].([]interface{})
	if !ok || len(tiles) != 15 {
		t.Errorf("Expected 15 tiles, got %v", result["tiles"])
	}
}

// TestAPIGetStats tests the aggregate stats endpoint
func TestAPIGetStats(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	var result map[string]interface{}
	getJSON(t, ts.URL+"/api/stats", &result)

	tests := []struct {
		key  string
		want interface{}
	}{
		{"score", float64(150)},
		{"killed", float64(7)},
		{"enemyCount", float64(1024)},
		{"chestCount", float64(480)},
		{"highscore", float64(900)},
		{"dead", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if result[tt.key] != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, result[tt.key])
			}
		})
	}
	if _, ok := result["eventLog"].(map[string]interface{}); !ok {
		t.Error("Expected eventLog stats object")
	}
}

// TestAPIPlayerAndUpgrades tests the player and upgrade views
func TestAPIPlayerAndUpgrades(t *testing.T) {
	engine := NewMockEngine()
	engine.snap.Upgrade = game.UpgradeSnapshot{
		Open:    true,
		Choices: []string{"+3 max ammo", "+1 max bomb"},
		Cursor:  1,
	}
	engine.snap.Boss = game.BossSnapshot{Alive: true, DX: 3, DY: -4}
	ts := newTestServer(t, api.RouterConfig{Engine: engine})

	var player struct {
		Player game.PlayerSnapshot `json:"player"`
		Boss   game.BossSnapshot   `json:"boss"`
	}
	getJSON(t, ts.URL+"/api/player", &player)
	if player.Player.Character != "Joshua" || player.Player.X != 12 {
		t.Errorf("Expected Joshua at x 12, got %s at x %d", player.Player.Character, player.Player.X)
	}
	if !player.Boss.Alive || player.Boss.DY != -4 {
		t.Errorf("Expected live boss at dy -4, got %+v", player.Boss)
	}

	var up game.UpgradeSnapshot
	getJSON(t, ts.URL+"/api/upgrades", &up)
	if !up.Open || len(up.Choices) != 2 || up.Cursor != 1 {
		t.Errorf("Expected open session with 2 choices at cursor 1, got %+v", up)
	}
}

// TestAPIRecordAndWeapons tests the record and weapon listing
func TestAPIRecordAndWeapons(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	var rec game.Record
	getJSON(t, ts.URL+"/api/record", &rec)
	if rec.Highscore != 900 {
		t.Errorf("Expected highscore 900, got %d", rec.Highscore)
	}
	if rec.Hotkeys != game.DefaultHotkeys() {
		t.Errorf("Expected default hotkeys, got %v", rec.Hotkeys)
	}

	var weapons []game.WeaponSpec
	getJSON(t, ts.URL+"/api/weapons", &weapons)
	if len(weapons) != int(game.WeaponCount) {
		t.Errorf("Expected %d weapons, got %d", game.WeaponCount, len(weapons))
	}
}

// ============================================================================
// Input Tests
// ============================================================================

// TestAPIInput tests that key transitions reach the engine queue
func TestAPIInput(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		full       bool
		wantStatus int
		want       game.Intent
	}{
		{
			name:       "shoot down",
			body:       `{"action": "shoot", "down": true}`,
			wantStatus: http.StatusOK,
			want:       game.Intent{Action: game.ActionShoot, Down: true},
		},
		{
			name:       "confirm release",
			body:       `{"action": "confirm", "down": false}`,
			wantStatus: http.StatusOK,
			want:       game.Intent{Action: game.ActionConfirm},
		},
		{
			name:       "unknown action",
			body:       `{"action": "jump", "down": true}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid json",
			body:       `{invalid}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "queue full",
			body:       `{"action": "up", "down": true}`,
			full:       true,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewMockEngine()
			engine.full = tt.full
			ts := newTestServer(t, api.RouterConfig{Engine: engine})

			resp, err := http.Post(ts.URL+"/api/input", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			select {
			case got := <-engine.submitted:
				if got != tt.want {
					t.Errorf("Expected intent %+v, got %+v", tt.want, got)
				}
			default:
				t.Error("Expected an intent to be submitted")
			}
		})
	}
}

// TestAPIInputRequiresToken tests the admin token on the input route
func TestAPIInputRequiresToken(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{
		Engine: NewMockEngine(),
		Auth:   api.NewTokenAuth("secret"),
	})

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{"no token", "", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", "", http.StatusUnauthorized},
		{"bearer token", "Bearer secret", "", http.StatusOK},
		{"query token", "", "?token=secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/input"+tt.query,
				strings.NewReader(`{"action": "run", "down": true}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}

	// read routes stay open
	if code := getJSON(t, ts.URL+"/api/stats", nil); code != http.StatusOK {
		t.Errorf("Expected 200 on stats without token, got %d", code)
	}
}

// ============================================================================
// Run History Tests
// ============================================================================

func summary(id string, score int) game.RunSummary {
	return game.RunSummary{ID: id, Character: "Joshua", Score: score}
}

// TestAPIRuns tests the merged session leaderboard and persisted history
func TestAPIRuns(t *testing.T) {
	lb := game.NewLeaderboard(1)
	lb.Record(summary("a", 300))
	lb.Record(summary("b", 900))
	lb.Record(summary("c", 100))

	history := &MockHistory{runs: []game.RunSummary{summary("old", 5000), summary("b", 900)}}
	ts := newTestServer(t, api.RouterConfig{
		Engine:      NewMockEngine(),
		Leaderboard: lb,
		Runs:        history,
	})

	var result struct {
		Session      []game.LeaderboardEntry `json:"session"`
		SessionCount int                     `json:"sessionCount"`
		History      []game.RunSummary       `json:"history"`
		HistoryCount int                     `json:"historyCount"`
	}
	if code := getJSON(t, ts.URL+"/api/runs?limit=2", &result); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	if len(result.Session) != 2 || result.Session[0].Run.ID != "b" || result.Session[1].Run.ID != "a" {
		t.Errorf("Expected session top [b a], got %+v", result.Session)
	}
	if result.SessionCount != 3 {
		t.Errorf("Expected 3 session runs, got %d", result.SessionCount)
	}
	if len(result.History) != 2 || result.History[0].ID != "old" {
		t.Errorf("Expected history led by old, got %+v", result.History)
	}
	if result.HistoryCount != 2 {
		t.Errorf("Expected history count 2, got %d", result.HistoryCount)
	}
}

// TestAPIRunsErrors tests bad limits and storage failures
func TestAPIRunsErrors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		history    *MockHistory
		wantStatus int
	}{
		{"zero limit", "?limit=0", &MockHistory{}, http.StatusBadRequest},
		{"text limit", "?limit=ten", &MockHistory{}, http.StatusBadRequest},
		{"storage down", "", &MockHistory{err: errors.New("disk gone")}, http.StatusInternalServerError},
		{"huge limit clamped", "?limit=100000", &MockHistory{}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine(), Runs: tt.history})
			if code := getJSON(t, ts.URL+"/api/runs"+tt.query, nil); code != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, code)
			}
		})
	}
}

// TestAPIRunRank tests rank lookup of a single run
func TestAPIRunRank(t *testing.T) {
	lb := game.NewLeaderboard(1)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		lb.Record(summary(id, 100*(5-i)))
	}
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine(), Leaderboard: lb})

	var result struct {
		Rank   int                     `json:"rank"`
		Around []game.LeaderboardEntry `json:"around"`
	}
	if code := getJSON(t, ts.URL+"/api/runs/d", &result); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if result.Rank != 4 {
		t.Errorf("Expected rank 4, got %d", result.Rank)
	}
	if len(result.Around) != 4 || result.Around[0].Rank != 2 {
		t.Errorf("Expected ranks 2..5 around d, got %+v", result.Around)
	}

	if code := getJSON(t, ts.URL+"/api/runs/zzz", nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown run, got %d", code)
	}
}

// ============================================================================
// Minimap and Rate Limit Tests
// ============================================================================

// TestAPIMinimap tests the PNG minimap endpoint
func TestAPIMinimap(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{
		Engine:  NewMockEngine(),
		Minimap: render.NewMinimap(4, false),
	})

	resp, err := http.Get(ts.URL + "/api/minimap.png")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("Failed to decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 12 {
		t.Errorf("Expected 20x12 image, got %dx%d", b.Dx(), b.Dy())
	}
}

// TestAPIMinimapDisabled tests the route without a renderer
func TestAPIMinimapDisabled(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})
	if code := getJSON(t, ts.URL+"/api/minimap.png", nil); code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", code)
	}
}

// TestRateLimitRejects tests that a burst over the limit gets 429
func TestRateLimitRejects(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{
		Engine: NewMockEngine(),
		Limits: &api.LimitConfig{
			Read:    api.Budget{PerSecond: 0.001, Burst: 2},
			IdleTTL: time.Hour,
		},
	})

	codes := make([]int, 3)
	for i := range codes {
		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		codes[i] = resp.StatusCode
		if i == 2 && resp.Header.Get("Retry-After") != "1" {
			t.Errorf("Expected Retry-After 1, got %q", resp.Header.Get("Retry-After"))
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("Request %d: expected %d, got %d", i, want[i], codes[i])
		}
	}
}

// ============================================================================
// WebSocket Tests
// ============================================================================

func newWSServer(t *testing.T, engine *MockEngine, auth *api.TokenAuth) (*api.Server, string) {
	t.Helper()
	s := api.NewServer(api.ServerConfig{
		Router: api.RouterConfig{
			Engine:         engine,
			Limits:         fastLimits,
			Auth:           auth,
			DisableLogging: true,
		},
		Hub: api.DefaultHubConfig(),
	})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		s.Hub().Stop()
		ts.Close()
	})
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, s *api.Server, url string) *websocket.Conn {
	t.Helper()
	before := s.Hub().ClientCount()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().ClientCount() == before {
		if time.Now().After(deadline) {
			t.Fatal("Client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

// TestWebSocketBroadcastJSON tests snapshot frames in JSON
func TestWebSocketBroadcastJSON(t *testing.T) {
	engine := NewMockEngine()
	s, url := newWSServer(t, engine, nil)
	conn := dial(t, s, url)

	if n := s.Hub().BroadcastSnapshot(engine.snap); n != 1 {
		t.Fatalf("Expected 1 client reached, got %d", n)
	}
	if n := s.Hub().BroadcastSnapshot(engine.snap); n != 0 {
		t.Errorf("Expected unchanged snapshot to be skipped, got %d", n)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Errorf("Expected text frame, got %d", kind)
	}

	var msg struct {
		Event string            `json:"event"`
		Data  game.GameSnapshot `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if msg.Event != "state" || msg.Data.TickNumber != 42 {
		t.Errorf("Expected state at tick 42, got %s at %d", msg.Event, msg.Data.TickNumber)
	}
}

// TestWebSocketBroadcastMsgpack tests binary frames
func TestWebSocketBroadcastMsgpack(t *testing.T) {
	engine := NewMockEngine()
	s, url := newWSServer(t, engine, nil)
	conn := dial(t, s, url+"?format=msgpack")

	s.Hub().BroadcastSnapshot(engine.snap)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("Expected binary frame, got %d", kind)
	}

	var msg map[string]interface{}
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to decode msgpack: %v", err)
	}
	if msg["event"] != "state" {
		t.Errorf("Expected event state, got %v", msg["event"])
	}
	snap, ok := msg["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data map, got %T", msg["data"])
	}
	if snap["runId"] != "run-1" {
		t.Errorf("Expected runId run-1, got %v", snap["runId"])
	}
}

// TestWebSocketInput tests intents sent over the socket
func TestWebSocketInput(t *testing.T) {
	tests := []struct {
		name   string
		binary bool
	}{
		{"json", false},
		{"msgpack", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewMockEngine()
			s, url := newWSServer(t, engine, nil)

			var err error
			if tt.binary {
				conn := dial(t, s, url+"?format=msgpack")
				payload, _ := msgpack.Marshal(map[string]interface{}{"action": "bomb", "down": true})
				err = conn.WriteMessage(websocket.BinaryMessage, payload)
			} else {
				conn := dial(t, s, url)
				err = conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"bomb","down":true}`))
			}
			if err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			select {
			case got := <-engine.submitted:
				if got.Action != game.ActionBomb || !got.Down {
					t.Errorf("Expected bomb down, got %+v", got)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Expected intent to reach the engine")
			}
		})
	}
}

// TestWebSocketReadOnlyWithoutToken tests that unauthenticated sockets
// watch but cannot steer
func TestWebSocketReadOnlyWithoutToken(t *testing.T) {
	engine := NewMockEngine()
	s, url := newWSServer(t, engine, api.NewTokenAuth("secret"))

	watcher := dial(t, s, url)
	watcher.WriteMessage(websocket.TextMessage, []byte(`{"action":"up","down":true}`))

	pilot := dial(t, s, url+"?token=secret")
	pilot.WriteMessage(websocket.TextMessage, []byte(`{"action":"left","down":true}`))

	select {
	case got := <-engine.submitted:
		if got.Action != game.ActionLeft {
			t.Errorf("Expected left from the pilot, got %v", got.Action)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected pilot intent")
	}

	select {
	case got := <-engine.submitted:
		t.Errorf("Expected no further intent, got %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestWebSocketOriginRejected tests the origin policy
func TestWebSocketOriginRejected(t *testing.T) {
	_, url := newWSServer(t, NewMockEngine(), nil)

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("Expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}

// TestWebSocketDisconnectReleases tests that closing a socket frees its slot
func TestWebSocketDisconnectReleases(t *testing.T) {
	s, url := newWSServer(t, NewMockEngine(), nil)
	conn := dial(t, s, url)

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected 0 clients, got %d", s.Hub().ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
