package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades board and judge console connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm}
}

// HandleTournamentConnection serves /ws/tournament?tournament_id=…&position=…
func (h *WebSocketHandler) HandleTournamentConnection(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("tournament_id")
	if raw == "" {
		http.Error(w, "tournament_id is required", http.StatusBadRequest)
		return
	}
	tournamentID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "invalid tournament_id format", http.StatusBadRequest)
		return
	}

	position := 0
	if p := r.URL.Query().Get("position"); p != "" {
		if position, err = strconv.Atoi(p); err != nil || position < 0 {
			http.Error(w, "invalid position", http.StatusBadRequest)
			return
		}
	}

	// Upgrade writes its own error response on failure.
	if err := h.connectionManager.UpgradeConnection(w, r, tournamentID, position); err != nil {
		log.Error().
			Err(err).
			Str("tournament_id", tournamentID.String()).
			Msg("failed to upgrade WebSocket connection")
	}
}

func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/tournament", h.HandleTournamentConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
