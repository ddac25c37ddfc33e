package status

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/models"
	"github.com/mcdev12/playoffs/go/internal/progress"
)

var epoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type fakeTournaments struct {
	tour  *models.Tournament
	comps []models.Competitor
	names []string
}

func (f *fakeTournaments) GetTournament(_ context.Context, id uuid.UUID) (*models.Tournament, error) {
	if f.tour.ID != id {
		return nil, models.ErrNotFound
	}
	return f.tour, nil
}

func (f *fakeTournaments) GetCompetitors(context.Context, uuid.UUID) ([]models.Competitor, error) {
	return f.comps, nil
}

func (f *fakeTournaments) GetResolvedPuzzleNames(context.Context, *models.Tournament) ([]string, error) {
	return f.names, nil
}

// store backs both the status reads and the progress writes.
type store struct {
	mu     sync.Mutex
	tour   *models.Tournament
	comps  []models.Competitor
	states map[uuid.UUID]*models.CompetitorState
}

func (s *store) ListStates(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.CompetitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]*models.CompetitorState{}
	for _, id := range ids {
		if st, ok := s.states[id]; ok {
			out[id] = st.Clone()
		}
	}
	return out, nil
}

func (s *store) GetCompetitorByPosition(_ context.Context, _ uuid.UUID, position int) (*models.Competitor, error) {
	for _, c := range s.comps {
		if c.Position == position {
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *store) GetCompetitorState(_ context.Context, id uuid.UUID) (*models.CompetitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[id]; ok {
		return st.Clone(), nil
	}
	return nil, nil
}

func (s *store) ApplyTransactional(_ context.Context, tournamentID, id uuid.UUID, fn progress.UpdateFunc) (*models.CompetitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tour.ID != tournamentID {
		return nil, models.ErrNotFound
	}
	tour := *s.tour
	current, ok := s.states[id]
	if !ok {
		current = models.NewWaitingState(id)
	}
	change, err := fn(current.Clone(), &tour)
	if err != nil {
		return nil, err
	}
	if change == nil || change.State == nil {
		return current.Clone(), nil
	}
	s.states[id] = change.State.Clone()
	return change.State, nil
}

type fixture struct {
	fc       *clockwork.FakeClock
	tour     *models.Tournament
	comps    []models.Competitor
	store    *store
	progress *progress.App
	app      *App
}

func newFixture(t *testing.T, puzzles int, handicaps ...int) *fixture {
	t.Helper()
	fc := clockwork.NewFakeClockAt(epoch)
	tour := &models.Tournament{ID: uuid.New(), DisplayName: "Finals", IsPaused: true}
	names := make([]string, puzzles)
	for i := range names {
		tour.PuzzleIDs = append(tour.PuzzleIDs, uuid.New())
		names[i] = string(rune('A' + i))
	}

	comps := make([]models.Competitor, len(handicaps))
	for i, h := range handicaps {
		comps[i] = models.Competitor{ID: uuid.New(), TournamentID: tour.ID, Position: i + 1, DisplayName: "C" + string(rune('1'+i)), HandicapSeconds: h}
	}

	st := &store{tour: tour, comps: comps, states: map[uuid.UUID]*models.CompetitorState{}}
	reader := &fakeTournaments{tour: tour, comps: comps, names: names}
	cfg := clock.DefaultConfig()
	prog := progress.NewApp(st, reader, cfg, fc)

	return &fixture{
		fc:       fc,
		tour:     tour,
		comps:    comps,
		store:    st,
		progress: prog,
		app:      NewApp(reader, st, prog, cfg, fc, 4),
	}
}

func (f *fixture) status(t *testing.T) *Response {
	t.Helper()
	resp, err := f.app.GetStatus(context.Background(), f.tour.ID)
	require.NoError(t, err)
	return resp
}

func (f *fixture) act(t *testing.T, position int, action string) {
	t.Helper()
	_, err := f.progress.ApplyAction(context.Background(), progress.ActionRequest{
		TournamentID: f.tour.ID, Position: position, Action: action,
	})
	require.NoError(t, err)
}

func TestGetStatus_UnknownTournament(t *testing.T) {
	f := newFixture(t, 1, 0)
	_, err := f.app.GetStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetStatus_BeforeStartDoesNotTick(t *testing.T) {
	f := newFixture(t, 2, 0, 15)
	resp := f.status(t)

	assert.Nil(t, resp.Tournament.StartTime)
	assert.Equal(t, []string{"A", "B"}, resp.Tournament.PuzzleNames)
	assert.Equal(t, 2, resp.Tournament.PuzzlesCount)
	require.Len(t, resp.Competitors, 2)
	for _, c := range resp.Competitors {
		assert.Equal(t, models.StatusWaiting, c.Status)
	}
	assert.Empty(t, f.store.states, "no rows are written before the start")
	assert.Equal(t, "Get Ready [+15s]", resp.Board.Competitors[1].Global.Text)
}

func TestGetStatus_AutoStartsByHandicap(t *testing.T) {
	f := newFixture(t, 2, 0, 10)
	clock.StartOrUnpause(f.tour, f.fc.Now(), 5*time.Second)

	f.fc.Advance(6 * time.Second)
	resp := f.status(t)
	assert.Equal(t, models.StatusWaiting, resp.Competitors[0].Status)
	assert.Equal(t, "Waiting to start", resp.Competitors[0].StatusText)

	f.fc.Advance(time.Second)
	resp = f.status(t)
	assert.Equal(t, models.StatusSolving, resp.Competitors[0].Status)
	assert.Equal(t, "Solving: A", resp.Competitors[0].StatusText)
	assert.Equal(t, models.StatusWaiting, resp.Competitors[1].Status)
	assert.Equal(t, "Waiting to start 00:08", resp.Competitors[1].StatusText)

	f.fc.Advance(10 * time.Second)
	resp = f.status(t)
	assert.Equal(t, models.StatusSolving, resp.Competitors[1].Status)
}

func TestGetStatus_FormatsInstantsAsUTC(t *testing.T) {
	f := newFixture(t, 1, 0)
	local := time.FixedZone("CET", 3600)
	f.fc = clockwork.NewFakeClockAt(epoch.In(local))
	f.app.clock = f.fc
	clock.StartOrUnpause(f.tour, f.fc.Now(), 5*time.Second)

	resp := f.status(t)
	require.NotNil(t, resp.Tournament.StartTime)
	assert.Equal(t, "2025-03-14T09:00:05Z", *resp.Tournament.StartTime)
	assert.Equal(t, "2025-03-14T09:00:00Z", resp.ServerTime)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"last_pause_time":null`)
}

func TestGetStatus_TwoPuzzleScenarioFinishesWithPenalty(t *testing.T) {
	f := newFixture(t, 2, 0)
	clock.StartOrUnpause(f.tour, f.fc.Now(), 5*time.Second)
	f.fc.Advance(7 * time.Second)
	f.status(t)

	f.fc.Advance(20 * time.Second)
	f.act(t, 1, "submit_answer")
	f.act(t, 1, "incorrect")
	resp := f.status(t)
	assert.Equal(t, models.StatusSolving, resp.Competitors[0].Status)
	assert.Equal(t, 0, resp.Competitors[0].CurrentPuzzle)
	assert.Equal(t, 1, resp.Competitors[0].IncorrectAnswers[0])

	f.fc.Advance(20 * time.Second)
	f.act(t, 1, "submit_answer")
	f.act(t, 1, "correct")
	resp = f.status(t)
	assert.Equal(t, 1, resp.Competitors[0].CurrentPuzzle)

	f.fc.Advance(30 * time.Second)
	f.act(t, 1, "submit_answer")
	f.act(t, 1, "incorrect")
	resp = f.status(t)
	assert.Equal(t, models.StatusPendingPenalty, resp.Competitors[0].Status)
	assert.Equal(t, "60", resp.Competitors[0].StatusText)
	assert.Equal(t, 250, resp.Board.PollIntervalMs)

	f.fc.Advance(60 * time.Second)
	resp = f.status(t)
	assert.Equal(t, models.StatusSolving, resp.Competitors[0].Status)
	assert.Equal(t, 1, resp.Competitors[0].CurrentPuzzle)

	f.fc.Advance(10 * time.Second)
	f.act(t, 1, "submit_answer")
	f.act(t, 1, "correct")
	resp = f.status(t)

	c := resp.Competitors[0]
	assert.Equal(t, models.StatusFinished, c.Status)
	assert.Equal(t, 2, c.CurrentPuzzle)
	require.NotNil(t, c.FinishTimeStamp)

	// Last final submission at effective 2:22, plus one penalty minute.
	view := resp.Board.Competitors[0]
	assert.Equal(t, 1, view.PenaltyMinutes)
	assert.Equal(t, "Finished (with 1m penalty) at 03:22", view.Global.Text)
	assert.True(t, resp.Board.FinalStage)
}

func TestGetStatus_ResetStateProjectsAsWaiting(t *testing.T) {
	f := newFixture(t, 1, 0)
	clock.StartOrUnpause(f.tour, f.fc.Now(), 5*time.Second)
	f.fc.Advance(10 * time.Second)
	f.status(t)
	f.act(t, 1, "submit_answer")

	clock.Reset(f.tour)
	f.store.states = map[uuid.UUID]*models.CompetitorState{}

	resp := f.status(t)
	assert.Equal(t, models.StatusWaiting, resp.Competitors[0].Status)
	assert.Equal(t, 0, resp.Competitors[0].CurrentPuzzle)
	assert.Empty(t, resp.Competitors[0].SubmissionTimes)
}
