package tournament

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/events"
	"github.com/mcdev12/playoffs/go/internal/models"
)

// TournamentRepository defines what the tournament app layer needs from the repository
type TournamentRepository interface {
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	GetCompetitors(ctx context.Context, tournamentID uuid.UUID) ([]models.Competitor, error)
	GetPuzzles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Puzzle, error)
	UpdateClock(ctx context.Context, id uuid.UUID, fn ClockFunc) (*models.Tournament, error)
	BulkResetStates(ctx context.Context, tournamentID uuid.UUID) error
	CreateTournament(ctx context.Context, req CreateTournamentRequest) (*models.Tournament, error)
	ConfigureTournament(ctx context.Context, id uuid.UUID, puzzleIDs []uuid.UUID, competitors []models.Competitor) (*models.Tournament, error)
	CreatePuzzle(ctx context.Context, req CreatePuzzleRequest) (*models.Puzzle, error)
}

// App handles tournament clock and roster logic
type App struct {
	repo     TournamentRepository
	clock    clock.Clock
	cfg      clock.Config
	validate *validator.Validate
}

// NewApp creates a new tournament App
func NewApp(repo TournamentRepository, cfg clock.Config, clk clock.Clock) *App {
	return &App{
		repo:     repo,
		clock:    clk,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// GetTournament retrieves a tournament by ID
func (a *App) GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	t, err := a.repo.GetTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return t, nil
}

// GetCompetitors returns the roster ordered by position
func (a *App) GetCompetitors(ctx context.Context, tournamentID uuid.UUID) ([]models.Competitor, error) {
	competitors, err := a.repo.GetCompetitors(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get competitors: %w", err)
	}
	return competitors, nil
}

// GetResolvedPuzzleNames returns one name per entry of the puzzle order.
// Puzzles missing from the catalogue get a positional placeholder so the
// names stay aligned with puzzle indexes.
func (a *App) GetResolvedPuzzleNames(ctx context.Context, t *models.Tournament) ([]string, error) {
	if len(t.PuzzleIDs) == 0 {
		return []string{}, nil
	}

	puzzles, err := a.repo.GetPuzzles(ctx, t.PuzzleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get puzzles: %w", err)
	}

	names := make([]string, len(t.PuzzleIDs))
	for i, id := range t.PuzzleIDs {
		if p, ok := puzzles[id]; ok {
			names[i] = p.Title
			continue
		}
		names[i] = fmt.Sprintf("Puzzle %d", i+1)
		log.Warn().
			Str("tournament_id", t.ID.String()).
			Str("puzzle_id", id.String()).
			Msg("puzzle missing from catalogue")
	}
	return names, nil
}

// StartOrUnpause starts a never-started tournament or resumes a paused one.
func (a *App) StartOrUnpause(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	return a.updateClock(ctx, id, func(t *models.Tournament) (*ClockChange, error) {
		now := a.clock.Now()
		transition := clock.StartOrUnpause(t, now, a.cfg.StartCountdown)
		return clockChange(t, transition, now)
	})
}

// Pause freezes contest time.
func (a *App) Pause(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	return a.updateClock(ctx, id, func(t *models.Tournament) (*ClockChange, error) {
		now := a.clock.Now()
		transition, err := clock.Pause(t, now)
		if err != nil {
			return nil, err
		}
		return clockChange(t, transition, now)
	})
}

// Reset clears the clock and returns every competitor to waiting.
func (a *App) Reset(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	return a.updateClock(ctx, id, func(t *models.Tournament) (*ClockChange, error) {
		transition := clock.Reset(t)
		change, err := clockChange(t, transition, a.clock.Now())
		if err != nil {
			return nil, err
		}
		change.ResetStates = true
		return change, nil
	})
}

func (a *App) updateClock(ctx context.Context, id uuid.UUID, fn ClockFunc) (*models.Tournament, error) {
	var applied clock.Transition
	t, err := a.repo.UpdateClock(ctx, id, func(t *models.Tournament) (*ClockChange, error) {
		change, err := fn(t)
		if change != nil {
			applied = change.Transition
		}
		return change, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update tournament clock: %w", err)
	}

	if applied != clock.TransitionNone {
		log.Info().
			Str("tournament_id", id.String()).
			Str("transition", string(applied)).
			Bool("is_paused", t.IsPaused).
			Dur("total_paused", t.TotalPaused()).
			Msg("tournament clock updated")
	}
	return t, nil
}

func clockChange(t *models.Tournament, transition clock.Transition, at time.Time) (*ClockChange, error) {
	var eventType events.Type
	switch transition {
	case clock.TransitionStarted:
		eventType = events.TypeTournamentStarted
	case clock.TransitionResumed:
		eventType = events.TypeTournamentResumed
	case clock.TransitionPaused:
		eventType = events.TypeTournamentPaused
	case clock.TransitionReset:
		eventType = events.TypeTournamentReset
	default:
		return nil, nil
	}

	evt, err := events.New(t.ID, eventType, events.TournamentClockPayload{
		TournamentID:       t.ID.String(),
		StartTime:          t.StartTime,
		IsPaused:           t.IsPaused,
		TotalPausedSeconds: t.TotalPaused().Seconds(),
		OccurredAt:         at.UTC(),
	})
	if err != nil {
		return nil, err
	}
	return &ClockChange{Transition: transition, Event: evt}, nil
}

// CreateTournament creates an empty tournament in the reset state.
func (a *App) CreateTournament(ctx context.Context, req CreateTournamentRequest) (*models.Tournament, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	t, err := a.repo.CreateTournament(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	log.Info().
		Str("tournament_id", t.ID.String()).
		Str("display_name", t.DisplayName).
		Msg("created tournament")
	return t, nil
}

// ConfigureTournament replaces the puzzle order and roster and creates a
// waiting state for every competitor.
func (a *App) ConfigureTournament(ctx context.Context, id uuid.UUID, req ConfigureTournamentRequest) (*models.Tournament, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	competitors := make([]models.Competitor, len(req.Competitors))
	for i, in := range req.Competitors {
		competitors[i] = models.Competitor{
			ID:              uuid.New(),
			TournamentID:    id,
			Position:        i + 1,
			DisplayName:     rosterDisplayName(in),
			HandicapSeconds: in.HandicapSeconds,
		}
	}

	t, err := a.repo.ConfigureTournament(ctx, id, req.PuzzleIDs, competitors)
	if err != nil {
		return nil, fmt.Errorf("failed to configure tournament: %w", err)
	}

	log.Info().
		Str("tournament_id", id.String()).
		Int("puzzles", len(req.PuzzleIDs)).
		Int("competitors", len(competitors)).
		Msg("configured tournament")
	return t, nil
}

// CreatePuzzle adds a puzzle to the catalogue.
func (a *App) CreatePuzzle(ctx context.Context, req CreatePuzzleRequest) (*models.Puzzle, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	p, err := a.repo.CreatePuzzle(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create puzzle: %w", err)
	}
	return p, nil
}

// BulkResetStates recreates every competitor state as waiting without
// touching the clock.
func (a *App) BulkResetStates(ctx context.Context, tournamentID uuid.UUID) error {
	if err := a.repo.BulkResetStates(ctx, tournamentID); err != nil {
		return fmt.Errorf("failed to reset competitor states: %w", err)
	}
	return nil
}

func rosterDisplayName(in CompetitorInput) string {
	if in.DisplayName != "" {
		return in.DisplayName
	}
	if in.Country != "" {
		return fmt.Sprintf("%s [%s]", in.Name, in.Country)
	}
	return in.Name
}
