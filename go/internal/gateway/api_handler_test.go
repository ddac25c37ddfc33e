package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/playoffs/go/internal/models"
	"github.com/mcdev12/playoffs/go/internal/progress"
	"github.com/mcdev12/playoffs/go/internal/status"
)

type fakeStatus struct {
	known uuid.UUID
	err   error
}

func (f *fakeStatus) GetStatus(_ context.Context, id uuid.UUID) (*status.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id != f.known {
		return nil, fmt.Errorf("failed to get tournament: %w", models.ErrNotFound)
	}
	return &status.Response{ServerTime: "2025-03-14T09:00:00Z"}, nil
}

type fakeActions struct {
	got *progress.ActionRequest
	err error
}

func (f *fakeActions) ApplyAction(_ context.Context, req progress.ActionRequest) (*models.CompetitorState, error) {
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	st := models.NewWaitingState(uuid.New())
	st.Status = models.StatusJudging
	st.CurrentPuzzle = 1
	st.Version = 4
	return st, nil
}

type fakeClock struct {
	calls []string
	err   error
}

func (f *fakeClock) record(name string, id uuid.UUID) (*models.Tournament, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Tournament{ID: id, DisplayName: "Finals"}, nil
}

func (f *fakeClock) StartOrUnpause(_ context.Context, id uuid.UUID) (*models.Tournament, error) {
	return f.record("start", id)
}

func (f *fakeClock) Pause(_ context.Context, id uuid.UUID) (*models.Tournament, error) {
	return f.record("pause", id)
}

func (f *fakeClock) Reset(_ context.Context, id uuid.UUID) (*models.Tournament, error) {
	return f.record("reset", id)
}

type apiFixture struct {
	tournamentID uuid.UUID
	status       *fakeStatus
	actions      *fakeActions
	clock        *fakeClock
	mux          *http.ServeMux
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{
		tournamentID: uuid.New(),
		actions:      &fakeActions{},
		clock:        &fakeClock{},
	}
	f.status = &fakeStatus{known: f.tournamentID}
	f.mux = http.NewServeMux()
	NewAPIHandler(f.status, f.actions, f.clock).RegisterRoutes(f.mux)
	return f
}

func (f *apiFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestStatusRoute(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(http.MethodGet, "/api/status/"+f.tournamentID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"server_time":"2025-03-14T09:00:00Z"`)

	rec = f.do(http.MethodGet, "/api/status/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/status/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusRoute_PersistenceFailureIs500(t *testing.T) {
	f := newAPIFixture()
	f.status.err = fmt.Errorf("failed to list states: connection refused")

	rec := f.do(http.MethodGet, "/api/status/"+f.tournamentID.String(), "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "failed to get status", resp.Message)
	assert.False(t, resp.Retryable)
}

func TestJudgeAction(t *testing.T) {
	f := newAPIFixture()

	body := fmt.Sprintf(`{"tournament_id":%q,"position":2,"action":"submit_answer"}`, f.tournamentID)
	rec := f.do(http.MethodPost, "/api/judge-action", body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, f.actions.got)
	assert.Equal(t, 2, f.actions.got.Position)
	assert.Equal(t, "submit_answer", f.actions.got.Action)

	var resp ActionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, models.StatusJudging, resp.State)
	assert.Equal(t, int64(4), resp.Version)
}

func TestJudgeAction_BadRequests(t *testing.T) {
	f := newAPIFixture()
	id := f.tournamentID.String()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"tournament_id":`},
		{"unknown action", fmt.Sprintf(`{"tournament_id":%q,"position":1,"action":"skip"}`, id)},
		{"missing tournament", `{"position":1,"action":"correct"}`},
		{"negative position", fmt.Sprintf(`{"tournament_id":%q,"position":-1,"action":"correct"}`, id)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/judge-action", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Nil(t, f.actions.got)
}

func TestJudgeAction_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      int
		retryable bool
	}{
		{"invalid action", fmt.Errorf("correct requires judging: %w", models.ErrInvalidAction), http.StatusConflict, false},
		{"write conflict", fmt.Errorf("failed to apply: %w", models.ErrWriteConflict), http.StatusConflict, true},
		{"unknown position", fmt.Errorf("failed to get competitor: %w", models.ErrNotFound), http.StatusNotFound, false},
		{"persistence", fmt.Errorf("failed to commit"), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture()
			f.actions.err = tt.err

			body := fmt.Sprintf(`{"tournament_id":%q,"position":1,"action":"correct"}`, f.tournamentID)
			rec := f.do(http.MethodPost, "/api/judge-action", body)
			require.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.retryable, decodeError(t, rec).Retryable)
		})
	}
}

func TestClockRoutes(t *testing.T) {
	f := newAPIFixture()
	id := f.tournamentID.String()

	for _, path := range []string{
		"/api/start-unpause-tournament/" + id,
		"/api/pause-tournament/" + id,
		"/api/reset-tournament-progress/" + id,
	} {
		rec := f.do(http.MethodPost, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)

		var resp ClockResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, f.tournamentID, resp.Tournament.ID)
	}
	assert.Equal(t, []string{"start", "pause", "reset"}, f.clock.calls)

	rec := f.do(http.MethodGet, "/api/pause-tournament/"+id, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestClockRoutes_PauseBeforeStartConflicts(t *testing.T) {
	f := newAPIFixture()
	f.clock.err = fmt.Errorf("pause: %w", models.ErrInvalidAction)

	rec := f.do(http.MethodPost, "/api/pause-tournament/"+f.tournamentID.String(), "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, decodeError(t, rec).Retryable)
}
