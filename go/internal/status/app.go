package status

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/models"
	"github.com/mcdev12/playoffs/go/internal/projection"
)

var statusQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "playoffs_status_query_duration_seconds",
	Help:    "Status query latency including lazy ticks",
	Buckets: prometheus.DefBuckets,
}, []string{"result"})

// TournamentReader is the read side of the tournament app used here.
type TournamentReader interface {
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	GetCompetitors(ctx context.Context, tournamentID uuid.UUID) ([]models.Competitor, error)
	GetResolvedPuzzleNames(ctx context.Context, t *models.Tournament) ([]string, error)
}

// StateLister bulk-loads competitor states.
type StateLister interface {
	ListStates(ctx context.Context, competitorIDs []uuid.UUID) (map[uuid.UUID]*models.CompetitorState, error)
}

// Ticker applies due time-driven transitions for one competitor.
type Ticker interface {
	Tick(ctx context.Context, t *models.Tournament, comp models.Competitor, names []string, current *models.CompetitorState) (*models.CompetitorState, error)
}

// App serves the status query.
type App struct {
	tournaments TournamentReader
	states      StateLister
	ticker      Ticker
	projector   *projection.Projector
	clock       clock.Clock
	concurrency int
}

// NewApp creates a new status App. concurrency bounds parallel ticks per query.
func NewApp(tournaments TournamentReader, states StateLister, ticker Ticker, cfg clock.Config, clk clock.Clock, concurrency int) *App {
	if concurrency < 1 {
		concurrency = 1
	}
	return &App{
		tournaments: tournaments,
		states:      states,
		ticker:      ticker,
		projector:   projection.New(cfg),
		clock:       clk,
		concurrency: concurrency,
	}
}

// GetStatus ticks every competitor of the tournament and returns the
// projected feed.
func (a *App) GetStatus(ctx context.Context, tournamentID uuid.UUID) (*Response, error) {
	started := time.Now()
	resp, err := a.getStatus(ctx, tournamentID)

	result := "ok"
	if err != nil {
		result = "error"
	}
	statusQueryDuration.WithLabelValues(result).Observe(time.Since(started).Seconds())
	return resp, err
}

func (a *App) getStatus(ctx context.Context, tournamentID uuid.UUID) (*Response, error) {
	t, err := a.tournaments.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	competitors, err := a.tournaments.GetCompetitors(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get competitors: %w", err)
	}

	names, err := a.tournaments.GetResolvedPuzzleNames(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve puzzle names: %w", err)
	}

	ids := make([]uuid.UUID, len(competitors))
	for i, c := range competitors {
		ids[i] = c.ID
	}
	states, err := a.states.ListStates(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitor states: %w", err)
	}

	progress, err := a.tick(ctx, t, competitors, names, states)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	board := a.projector.Project(projection.Input{
		Tournament:  t,
		PuzzleNames: names,
		Competitors: progress,
		Now:         now,
	})

	log.Debug().
		Str("tournament_id", tournamentID.String()).
		Int("competitors", len(progress)).
		Int("poll_interval_ms", board.PollIntervalMs).
		Msg("status served")

	return buildResponse(t, names, progress, board, now), nil
}

// tick runs the lazy ticks in parallel. Competitors are independent, so
// only the per-competitor lock inside the ticker orders writes.
func (a *App) tick(ctx context.Context, t *models.Tournament, competitors []models.Competitor, names []string, states map[uuid.UUID]*models.CompetitorState) ([]models.CompetitorProgress, error) {
	progress := make([]models.CompetitorProgress, len(competitors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, c := range competitors {
		progress[i] = models.CompetitorProgress{Competitor: c, State: states[c.ID]}
		if !t.Started() {
			continue
		}
		g.Go(func() error {
			s, err := a.ticker.Tick(gctx, t, c, names, states[c.ID])
			if err != nil {
				return err
			}
			progress[i].State = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to evaluate ticks: %w", err)
	}
	return progress, nil
}

func buildResponse(t *models.Tournament, names []string, progress []models.CompetitorProgress, board projection.Board, now time.Time) *Response {
	resp := &Response{
		Tournament: TournamentView{
			ID:                 t.ID,
			DisplayName:        t.DisplayName,
			StartTime:          formatInstantPtr(t.StartTime),
			IsPaused:           t.IsPaused,
			TotalPausedSeconds: t.TotalPaused().Seconds(),
			LastPauseTime:      formatInstantPtr(t.LastPauseTime),
			PuzzleIDs:          t.PuzzleIDs,
			PuzzleNames:        names,
			PuzzlesCount:       t.PuzzleCount(),
		},
		Competitors: make([]CompetitorStatus, 0, len(progress)),
		Board:       board,
		ServerTime:  formatInstant(now),
	}

	for _, cp := range progress {
		s := cp.State
		if s == nil {
			s = models.NewWaitingState(cp.Competitor.ID)
		}
		view := board.Competitors[len(resp.Competitors)]

		resp.Competitors = append(resp.Competitors, CompetitorStatus{
			ID:                     cp.Competitor.ID,
			Position:               cp.Competitor.Position,
			DisplayName:            cp.Competitor.DisplayName,
			HandicapSeconds:        cp.Competitor.HandicapSeconds,
			CurrentPuzzle:          s.CurrentPuzzle,
			Status:                 s.Status,
			StatusText:             view.StatusText,
			FinishTimeStamp:        formatInstantPtr(s.FinishTimeStamp),
			PuzzleTimes:            formatTimes(s.PuzzleTimes),
			IncorrectAnswers:       s.IncorrectAnswers,
			SubmissionTimes:        formatTimeLists(s.SubmissionTimes),
			IncorrectJudgmentTimes: formatTimeLists(s.IncorrectJudgmentTimes),
			Version:                s.Version,
		})
	}
	return resp
}

func formatTimes(in map[int]time.Time) map[int]string {
	out := make(map[int]string, len(in))
	for k, v := range in {
		out[k] = formatInstant(v)
	}
	return out
}

func formatTimeLists(in map[int][]time.Time) map[int][]string {
	out := make(map[int][]string, len(in))
	for k, list := range in {
		formatted := make([]string, len(list))
		for i, v := range list {
			formatted[i] = formatInstant(v)
		}
		out[k] = formatted
	}
	return out
}
