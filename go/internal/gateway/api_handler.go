package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/playoffs/go/internal/models"
	"github.com/mcdev12/playoffs/go/internal/progress"
	"github.com/mcdev12/playoffs/go/internal/status"
)

// StatusProvider serves the polled status feed.
type StatusProvider interface {
	GetStatus(ctx context.Context, tournamentID uuid.UUID) (*status.Response, error)
}

// ActionApplier applies judge actions.
type ActionApplier interface {
	ApplyAction(ctx context.Context, req progress.ActionRequest) (*models.CompetitorState, error)
}

// ClockController drives the tournament clock.
type ClockController interface {
	StartOrUnpause(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	Pause(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	Reset(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
}

// APIHandler serves the JSON endpoints used by the board and judge consoles.
type APIHandler struct {
	status   StatusProvider
	actions  ActionApplier
	clock    ClockController
	validate *validator.Validate
}

func NewAPIHandler(statusProvider StatusProvider, actions ActionApplier, clock ClockController) *APIHandler {
	return &APIHandler{
		status:   statusProvider,
		actions:  actions,
		clock:    clock,
		validate: validator.New(),
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ActionResponse acknowledges a judge action.
type ActionResponse struct {
	Status        string                  `json:"status"`
	CompetitorID  uuid.UUID               `json:"competitor_id"`
	State         models.CompetitorStatus `json:"state"`
	CurrentPuzzle int                     `json:"current_puzzle"`
	Version       int64                   `json:"version"`
}

// ClockResponse acknowledges a lifecycle control.
type ClockResponse struct {
	Status     string             `json:"status"`
	Tournament *models.Tournament `json:"tournament"`
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status/{tournament_id}", h.HandleGetStatus)
	mux.HandleFunc("POST /api/judge-action", h.HandleJudgeAction)
	mux.HandleFunc("POST /api/start-unpause-tournament/{tournament_id}", h.handleClock(h.clock.StartOrUnpause))
	mux.HandleFunc("POST /api/pause-tournament/{tournament_id}", h.handleClock(h.clock.Pause))
	mux.HandleFunc("POST /api/reset-tournament-progress/{tournament_id}", h.handleClock(h.clock.Reset))
}

// HandleGetStatus handles GET /api/status/{tournament_id}
func (h *APIHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := pathTournamentID(w, r)
	if !ok {
		return
	}

	resp, err := h.status.GetStatus(r.Context(), tournamentID)
	if err != nil {
		writeError(w, err, "failed to get status", tournamentID)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// HandleJudgeAction handles POST /api/judge-action
func (h *APIHandler) HandleJudgeAction(w http.ResponseWriter, r *http.Request) {
	var req progress.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Message: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Message: err.Error()})
		return
	}

	state, err := h.actions.ApplyAction(r.Context(), req)
	if err != nil {
		writeError(w, err, "failed to apply judge action", req.TournamentID)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{
		Status:        "success",
		CompetitorID:  state.CompetitorID,
		State:         state.Status,
		CurrentPuzzle: state.CurrentPuzzle,
		Version:       state.Version,
	})
}

func (h *APIHandler) handleClock(fn func(ctx context.Context, id uuid.UUID) (*models.Tournament, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tournamentID, ok := pathTournamentID(w, r)
		if !ok {
			return
		}

		t, err := fn(r.Context(), tournamentID)
		if err != nil {
			writeError(w, err, "failed to update tournament clock", tournamentID)
			return
		}
		writeJSON(w, http.StatusOK, ClockResponse{Status: "success", Tournament: t})
	}
}

func pathTournamentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("tournament_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Message: "invalid tournament ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error, msg string, tournamentID uuid.UUID) {
	code, resp := http.StatusInternalServerError, ErrorResponse{Status: "error", Message: msg}

	switch {
	case errors.Is(err, models.ErrNotFound):
		code, resp.Message = http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrInvalidAction):
		code, resp.Message = http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrWriteConflict):
		code, resp.Message, resp.Retryable = http.StatusConflict, err.Error(), true
	default:
		log.Error().
			Err(err).
			Str("tournament_id", tournamentID.String()).
			Msg(msg)
	}

	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
