package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"that-night/internal/game"
	"that-night/internal/logger"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16

	// DefaultBroadcastInterval is how often snapshots are pushed
	DefaultBroadcastInterval = 100 * time.Millisecond
)

// HubConfig configures connection limits of the websocket hub
type HubConfig struct {
	MaxClients int      // Total connections
	MaxPerIP   int      // Connections per client IP
	Origins    []string // See NewOriginPolicy
	Auth       *TokenAuth
}

// DefaultHubConfig returns the default limits
func DefaultHubConfig() HubConfig {
	return HubConfig{
		MaxClients: 100,
		MaxPerIP:   10,
		Origins:    []string{"http://localhost:*", "http://127.0.0.1:*"},
	}
}

// wsEnvelope is the frame pushed to clients
type wsEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// wsClient is one websocket connection
type wsClient struct {
	conn    *websocket.Conn
	ip      string
	binary  bool // msgpack frames instead of JSON
	control bool // may submit input
	send    chan []byte
}

// WebSocketHub pushes snapshots to every connected client and forwards
// their key transitions to the engine.
type WebSocketHub struct {
	engine   Simulation
	cfg      HubConfig
	origins  OriginPolicy
	limiter  *ConnLimiter
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	lastSeq uint64
	dropped uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewWebSocketHub creates a hub. No goroutine runs until
// StartBroadcastLoop is called.
func NewWebSocketHub(engine Simulation, cfg HubConfig) *WebSocketHub {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultHubConfig().MaxClients
	}
	if cfg.MaxPerIP <= 0 {
		cfg.MaxPerIP = DefaultHubConfig().MaxPerIP
	}
	if cfg.Auth == nil {
		cfg.Auth = NewTokenAuth("")
	}

	h := &WebSocketHub{
		engine:  engine,
		cfg:     cfg,
		origins: NewOriginPolicy(cfg.Origins),
		limiter: NewConnLimiter(cfg.MaxPerIP),
		clients: make(map[*wsClient]struct{}),
		stop:    make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if h.origins.Allowed(origin) {
				return true
			}
			logger.Log.WithField("origin", origin).Warn("websocket origin rejected")
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames were skipped for slow clients.
func (h *WebSocketHub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *WebSocketHub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) >= h.cfg.MaxClients {
		return false
	}
	h.clients[c] = struct{}{}
	setSpectators(len(h.clients))
	return true
}

// unregister removes c once; the send channel is closed under the lock so
// no broadcast can write to it afterwards.
func (h *WebSocketHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.limiter.Release(c.ip)
	setSpectators(len(h.clients))

	logger.Log.WithFields(logrus.Fields{
		"ip":        c.ip,
		"remaining": len(h.clients),
	}).Info("websocket client disconnected")
}

// Broadcast sends event to every client, encoding it at most once per
// format. Clients whose buffer is full skip the frame.
func (h *WebSocketHub) Broadcast(event string, data interface{}) int {
	msg := wsEnvelope{Event: event, Data: data}
	var text, bin []byte

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for c := range h.clients {
		var frame []byte
		if c.binary {
			if bin == nil {
				b, err := encodeMsgpack(msg)
				if err != nil {
					logger.Log.WithError(err).Warn("msgpack encode failed")
					return sent
				}
				bin = b
			}
			frame = bin
		} else {
			if text == nil {
				b, err := json.Marshal(msg)
				if err != nil {
					logger.Log.WithError(err).Warn("json encode failed")
					return sent
				}
				text = b
			}
			frame = text
		}

		select {
		case c.send <- frame:
			sent++
			countFrame("out")
		default:
			h.dropped++
		}
	}
	return sent
}

// BroadcastSnapshot pushes snap unless it was already sent.
func (h *WebSocketHub) BroadcastSnapshot(snap *game.GameSnapshot) int {
	h.mu.Lock()
	if snap.Sequence == h.lastSeq {
		h.mu.Unlock()
		return 0
	}
	h.lastSeq = snap.Sequence
	h.mu.Unlock()

	return h.Broadcast("state", snap)
}

// StartBroadcastLoop pushes the latest snapshot every interval.
func (h *WebSocketHub) StartBroadcastLoop(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				if h.ClientCount() == 0 {
					continue
				}
				h.BroadcastSnapshot(h.engine.GetSnapshot())
			}
		}
	}()
}

// Stop ends the broadcast loop and closes every connection.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Close()
	}
}

// HandleWebSocket upgrades the request. "?format=msgpack" selects binary
// frames; input is accepted only from clients passing the admin token when
// one is configured.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := ClientAddr(r)

	if h.ClientCount() >= h.cfg.MaxClients {
		logger.Log.WithField("ip", ip).Warn("websocket rejected: total limit reached")
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.limiter.Allow(ip) {
		logger.Log.WithField("ip", ip).Warn("websocket rejected: per-IP limit reached")
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Debug("websocket upgrade failed")
		h.limiter.Release(ip)
		return
	}

	c := &wsClient{
		conn:    conn,
		ip:      ip,
		binary:  r.URL.Query().Get("format") == "msgpack",
		control: h.cfg.Auth.Valid(r),
		send:    make(chan []byte, sendBuffer),
	}
	if !h.register(c) {
		RecordConnectionRejected("ws_total_limit")
		h.limiter.Release(ip)
		conn.Close()
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"ip":      ip,
		"binary":  c.binary,
		"control": c.control,
	}).Info("websocket client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// readPump forwards key transitions until the connection drops.
func (h *WebSocketHub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log := logger.Log.WithField("ip", c.ip)
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("websocket read failed")
			}
			return
		}
		countFrame("in")

		if !c.control {
			log.Debug("input from read-only client ignored")
			continue
		}

		var req inputRequest
		if kind == websocket.BinaryMessage {
			err = msgpack.Unmarshal(data, &req)
		} else {
			err = json.Unmarshal(data, &req)
		}
		if err != nil {
			log.WithError(err).Debug("malformed input frame")
			continue
		}

		in, err := req.intent()
		if err != nil {
			if isUnknownAction(err) {
				log.WithField("action", req.Action).Debug("unknown action")
			}
			continue
		}
		if !h.engine.Submit(in) {
			log.Warn("input queue full, intent dropped")
		}
	}
}

// writePump drains the send channel and keeps the connection alive.
func (h *WebSocketHub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	kind := websocket.TextMessage
	if c.binary {
		kind = websocket.BinaryMessage
	}

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(kind, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// encodeMsgpack encodes v reusing its json field names, so both frame
// formats carry the same keys.
func encodeMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
