package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/models"
)

// memStore is an in-memory ProgressRepository with a lock per competitor.
// tour is the stored tournament clock handed to update functions.
type memStore struct {
	mu          sync.Mutex
	locks       map[uuid.UUID]*sync.Mutex
	tour        *models.Tournament
	states      map[uuid.UUID]*models.CompetitorState
	competitors map[int]models.Competitor
	writes      atomic.Int32
	events      []string
}

func newMemStore(comps ...models.Competitor) *memStore {
	s := &memStore{
		locks:       map[uuid.UUID]*sync.Mutex{},
		states:      map[uuid.UUID]*models.CompetitorState{},
		competitors: map[int]models.Competitor{},
	}
	for _, c := range comps {
		s.competitors[c.Position] = c
		s.states[c.ID] = models.NewWaitingState(c.ID)
	}
	return s
}

func (s *memStore) lockFor(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *memStore) GetCompetitorByPosition(_ context.Context, _ uuid.UUID, position int) (*models.Competitor, error) {
	c, ok := s.competitors[position]
	if !ok {
		return nil, fmt.Errorf("position %d: %w", position, models.ErrNotFound)
	}
	return &c, nil
}

func (s *memStore) GetCompetitorState(_ context.Context, id uuid.UUID) (*models.CompetitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return nil, nil
	}
	return st.Clone(), nil
}

func (s *memStore) ApplyTransactional(_ context.Context, tournamentID, id uuid.UUID, fn UpdateFunc) (*models.CompetitorState, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	if s.tour == nil || s.tour.ID != tournamentID {
		s.mu.Unlock()
		return nil, models.ErrNotFound
	}
	tour := *s.tour
	current, ok := s.states[id]
	if !ok {
		current = models.NewWaitingState(id)
		s.states[id] = current
	}
	current = current.Clone()
	s.mu.Unlock()

	change, err := fn(current, &tour)
	if err != nil {
		return nil, err
	}
	if change == nil || change.State == nil {
		return current, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[id].Version != current.Version {
		return nil, models.ErrWriteConflict
	}
	s.states[id] = change.State.Clone()
	if change.Event != nil {
		s.events = append(s.events, string(change.Event.Type))
	}
	s.writes.Add(1)
	return change.State, nil
}

type staticTournaments struct {
	tour  *models.Tournament
	names []string
}

func (s *staticTournaments) GetTournament(_ context.Context, id uuid.UUID) (*models.Tournament, error) {
	if id != s.tour.ID {
		return nil, models.ErrNotFound
	}
	return s.tour, nil
}

func (s *staticTournaments) GetResolvedPuzzleNames(context.Context, *models.Tournament) ([]string, error) {
	return s.names, nil
}

type appFixture struct {
	fc    *clockwork.FakeClock
	store *memStore
	tour  *models.Tournament
	comp  models.Competitor
	app   *App
	names []string
}

func newAppFixture(t *testing.T, puzzles int) *appFixture {
	t.Helper()
	fc := clockwork.NewFakeClockAt(epoch)
	tour := &models.Tournament{ID: uuid.New(), IsPaused: true}
	names := make([]string, puzzles)
	for i := 0; i < puzzles; i++ {
		tour.PuzzleIDs = append(tour.PuzzleIDs, uuid.New())
		names[i] = fmt.Sprintf("P%d", i+1)
	}
	comp := models.Competitor{ID: uuid.New(), TournamentID: tour.ID, Position: 1}
	store := newMemStore(comp)
	store.tour = tour
	app := NewApp(store, &staticTournaments{tour: tour, names: names}, clock.DefaultConfig(), fc)
	return &appFixture{fc: fc, store: store, tour: tour, comp: comp, app: app, names: names}
}

func (f *appFixture) startAndSettle(t *testing.T) {
	t.Helper()
	clock.StartOrUnpause(f.tour, f.fc.Now(), clock.DefaultConfig().StartCountdown)
	f.fc.Advance(7 * time.Second)
	f.tick(t)
}

func (f *appFixture) tick(t *testing.T) *models.CompetitorState {
	t.Helper()
	current, err := f.store.GetCompetitorState(context.Background(), f.comp.ID)
	require.NoError(t, err)
	s, err := f.app.Tick(context.Background(), f.tour, f.comp, f.names, current)
	require.NoError(t, err)
	return s
}

func (f *appFixture) act(t *testing.T, action Action) *models.CompetitorState {
	t.Helper()
	s, err := f.app.ApplyAction(context.Background(), ActionRequest{
		TournamentID: f.tour.ID,
		Position:     f.comp.Position,
		Action:       string(action),
	})
	require.NoError(t, err)
	return s
}

func TestApp_TwoPuzzleScenario(t *testing.T) {
	f := newAppFixture(t, 2)
	f.startAndSettle(t)

	s := f.act(t, ActionSubmitAnswer)
	s = f.act(t, ActionIncorrect)
	assert.Equal(t, models.StatusSolving, s.Status)
	assert.Equal(t, 0, s.CurrentPuzzle)
	assert.Equal(t, 1, s.IncorrectAnswers[0])

	f.act(t, ActionSubmitAnswer)
	s = f.act(t, ActionCorrect)
	assert.Equal(t, models.StatusSolving, s.Status)
	assert.Equal(t, 1, s.CurrentPuzzle)

	f.act(t, ActionSubmitAnswer)
	s = f.act(t, ActionIncorrect)
	assert.Equal(t, models.StatusPendingPenalty, s.Status)

	f.fc.Advance(59 * time.Second)
	s = f.tick(t)
	assert.Equal(t, models.StatusPendingPenalty, s.Status)

	f.fc.Advance(time.Second)
	s = f.tick(t)
	assert.Equal(t, models.StatusSolving, s.Status)
	assert.Equal(t, 1, s.CurrentPuzzle)

	f.act(t, ActionSubmitAnswer)
	s = f.act(t, ActionCorrect)
	assert.Equal(t, models.StatusFinished, s.Status)
	assert.Equal(t, 2, s.CurrentPuzzle)
	assert.Equal(t, 1, s.TotalIncorrect()-s.IncorrectAnswers[1])

	assert.Equal(t, []string{
		"CompetitorStarted",
		"AnswerSubmitted", "AnswerJudgedIncorrect",
		"AnswerSubmitted", "AnswerJudgedCorrect",
		"AnswerSubmitted", "AnswerJudgedIncorrect",
		"PenaltyExpired",
		"AnswerSubmitted", "CompetitorFinished",
	}, f.store.events)
}

func TestApp_VersionIncrementsPerWrite(t *testing.T) {
	f := newAppFixture(t, 1)
	f.startAndSettle(t)

	s := f.act(t, ActionSubmitAnswer)
	assert.Equal(t, int64(2), s.Version)
	assert.Equal(t, f.fc.Now(), s.UpdatedAt)
}

func TestApp_UnknownPositionIsNotFound(t *testing.T) {
	f := newAppFixture(t, 1)
	_, err := f.app.ApplyAction(context.Background(), ActionRequest{
		TournamentID: f.tour.ID, Position: 9, Action: "submit_answer",
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestApp_InvalidActionLeavesStateAlone(t *testing.T) {
	f := newAppFixture(t, 1)
	f.startAndSettle(t)
	before := f.store.writes.Load()

	_, err := f.app.ApplyAction(context.Background(), ActionRequest{
		TournamentID: f.tour.ID, Position: 1, Action: "correct",
	})
	assert.ErrorIs(t, err, models.ErrInvalidAction)
	assert.Equal(t, before, f.store.writes.Load())

	_, err = f.app.ApplyAction(context.Background(), ActionRequest{
		TournamentID: f.tour.ID, Position: 1, Action: "rewind",
	})
	assert.ErrorIs(t, err, models.ErrInvalidAction)
}

func TestApp_ConcurrentCorrectAppliesOnce(t *testing.T) {
	f := newAppFixture(t, 3)
	f.startAndSettle(t)
	f.act(t, ActionSubmitAnswer)
	before := f.store.writes.Load()

	const n = 8
	var (
		wg       sync.WaitGroup
		ok       atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.app.ApplyAction(context.Background(), ActionRequest{
				TournamentID: f.tour.ID, Position: 1, Action: "correct",
			})
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, models.ErrInvalidAction):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), rejected.Load())
	assert.Equal(t, before+1, f.store.writes.Load())

	s, err := f.store.GetCompetitorState(context.Background(), f.comp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentPuzzle)
	assert.Len(t, s.PuzzleTimes, 1)
}

func TestApp_ConcurrentTicksWriteOnce(t *testing.T) {
	f := newAppFixture(t, 2)
	clock.StartOrUnpause(f.tour, f.fc.Now(), clock.DefaultConfig().StartCountdown)
	f.fc.Advance(7 * time.Second)

	waiting, err := f.store.GetCompetitorState(context.Background(), f.comp.ID)
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	results := make([]*models.CompetitorState, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.app.Tick(context.Background(), f.tour, f.comp, f.names, waiting)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.store.writes.Load())
	for _, s := range results {
		require.NotNil(t, s)
		assert.Equal(t, models.StatusSolving, s.Status)
	}
}

func TestApp_TickDecidesAgainstLockedClock(t *testing.T) {
	tests := []struct {
		name   string
		after  time.Duration
		change func(t *testing.T, f *appFixture)
	}{
		{
			name:  "reset",
			after: 7 * time.Second,
			change: func(_ *testing.T, f *appFixture) {
				clock.Reset(f.tour)
			},
		},
		{
			name:  "pause",
			after: 6 * time.Second,
			change: func(t *testing.T, f *appFixture) {
				_, err := clock.Pause(f.tour, f.fc.Now())
				require.NoError(t, err)
				f.fc.Advance(2 * time.Second)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAppFixture(t, 2)
			clock.StartOrUnpause(f.tour, f.fc.Now(), clock.DefaultConfig().StartCountdown)
			f.fc.Advance(tt.after)

			// A poller read the running clock before the change committed.
			stale := *f.tour
			tt.change(t, f)

			current, err := f.store.GetCompetitorState(context.Background(), f.comp.ID)
			require.NoError(t, err)
			s, err := f.app.Tick(context.Background(), &stale, f.comp, f.names, current)
			require.NoError(t, err)

			assert.Equal(t, models.StatusWaiting, s.Status)
			assert.Equal(t, int32(0), f.store.writes.Load())
			assert.Empty(t, f.store.events)
		})
	}
}

func TestApp_TickWithoutDueTransitionDoesNotWrite(t *testing.T) {
	f := newAppFixture(t, 2)
	clock.StartOrUnpause(f.tour, f.fc.Now(), clock.DefaultConfig().StartCountdown)
	f.fc.Advance(6 * time.Second)

	s := f.tick(t)
	assert.Equal(t, models.StatusWaiting, s.Status)
	assert.Equal(t, int32(0), f.store.writes.Load())
}
