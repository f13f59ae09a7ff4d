package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"that-night/internal/game"
	"that-night/internal/logger"
)

const (
	defaultRunLimit = 10
	maxRunLimit     = 100
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetSnapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	rec := h.engine.Record()

	writeJSON(w, map[string]interface{}{
		"tick":       snap.TickNumber,
		"runId":      snap.RunID,
		"score":      snap.Player.Stats[game.StatScore],
		"killed":     snap.Player.Killed,
		"enemyCount": snap.EnemyCount,
		"chestCount": snap.ChestCount,
		"bossesSeen": snap.BossesSeen,
		"dead":       snap.Player.Dead,
		"highscore":  rec.Highscore,
		"eventLog":   h.engine.GetEventLogStats(),
	})
}

func (h *routerHandlers) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	writeJSON(w, map[string]interface{}{
		"player": snap.Player,
		"boss":   snap.Boss,
	})
}

func (h *routerHandlers) handleGetUpgrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetSnapshot().Upgrade)
}

func (h *routerHandlers) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Record())
}

func (h *routerHandlers) handleGetWeapons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, game.GetAllWeaponSpecs())
}

// inputRequest is one key transition, by action name.
type inputRequest struct {
	Action string `json:"action" msgpack:"action"`
	Down   bool   `json:"down" msgpack:"down"`
}

func (req inputRequest) intent() (game.Intent, error) {
	a, err := game.ParseAction(req.Action)
	if err != nil {
		return game.Intent{}, err
	}
	return game.Intent{Action: a, Down: req.Down}, nil
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	in, err := req.intent()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.engine.Submit(in) {
		writeError(w, "Input queue full", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]bool{"queued": true})
}

func (h *routerHandlers) handleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunLimit)
	}

	resp := map[string]interface{}{}

	if h.leaderboard != nil {
		resp["session"] = h.leaderboard.Top(limit)
		resp["sessionCount"] = h.leaderboard.Len()
	}

	if h.runs != nil {
		top, err := h.runs.TopRuns(limit)
		if err != nil {
			logger.Log.WithError(err).Warn("reading run history failed")
			writeError(w, "Run history unavailable", http.StatusInternalServerError)
			return
		}
		count, err := h.runs.RunCount()
		if err != nil {
			logger.Log.WithError(err).Warn("counting runs failed")
			writeError(w, "Run history unavailable", http.StatusInternalServerError)
			return
		}
		resp["history"] = top
		resp["historyCount"] = count
	}

	writeJSON(w, resp)
}

func (h *routerHandlers) handleGetRunRank(w http.ResponseWriter, r *http.Request) {
	if h.leaderboard == nil {
		writeError(w, "Leaderboard disabled", http.StatusNotFound)
		return
	}

	id := chi.URLParam(r, "id")
	rank := h.leaderboard.Rank(id)
	if rank == 0 {
		writeError(w, "Run not found", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]interface{}{
		"rank":   rank,
		"around": h.leaderboard.Around(id, 2, 2),
	})
}

func (h *routerHandlers) handleGetMinimap(w http.ResponseWriter, r *http.Request) {
	if h.minimap == nil {
		writeError(w, "Minimap disabled", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.minimap.EncodePNG(w, h.engine.GetSnapshot()); err != nil {
		logger.Log.WithError(err).Warn("encoding minimap failed")
	}
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// isUnknownAction reports whether err came from an unparseable action name.
func isUnknownAction(err error) bool {
	return errors.Is(err, game.ErrUnknownAction)
}
