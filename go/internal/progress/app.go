package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/events"
	"github.com/mcdev12/playoffs/go/internal/models"
)

// ProgressRepository defines what the progress app layer needs from storage.
// ApplyTransactional must hold an exclusive per-competitor lock, and keep the
// tournament clock from changing, from the read it hands to fn until the
// write of fn's Change commits.
type ProgressRepository interface {
	GetCompetitorByPosition(ctx context.Context, tournamentID uuid.UUID, position int) (*models.Competitor, error)
	GetCompetitorState(ctx context.Context, competitorID uuid.UUID) (*models.CompetitorState, error)
	ApplyTransactional(ctx context.Context, tournamentID, competitorID uuid.UUID, fn UpdateFunc) (*models.CompetitorState, error)
}

// TournamentReader is the read side of the tournament app used here.
type TournamentReader interface {
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	GetResolvedPuzzleNames(ctx context.Context, t *models.Tournament) ([]string, error)
}

// App handles judge actions and lazy ticks.
type App struct {
	repo        ProgressRepository
	tournaments TournamentReader
	machine     *Machine
	clock       clock.Clock
}

// NewApp creates a new progress App
func NewApp(repo ProgressRepository, tournaments TournamentReader, cfg clock.Config, clk clock.Clock) *App {
	return &App{
		repo:        repo,
		tournaments: tournaments,
		machine:     NewMachine(cfg),
		clock:       clk,
	}
}

// Machine exposes the transition rules for read-only callers.
func (a *App) Machine() *Machine {
	return a.machine
}

// ApplyAction applies one judge action to the competitor at req.Position.
func (a *App) ApplyAction(ctx context.Context, req ActionRequest) (*models.CompetitorState, error) {
	action, err := ParseAction(req.Action)
	if err != nil {
		judgeActionsTotal.WithLabelValues("unknown", resultLabel(err)).Inc()
		return nil, err
	}

	state, err := a.applyAction(ctx, req, action)
	judgeActionsTotal.WithLabelValues(string(action), resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tournament_id", req.TournamentID.String()).
		Int("position", req.Position).
		Str("action", string(action)).
		Str("status", string(state.Status)).
		Int("current_puzzle", state.CurrentPuzzle).
		Msg("judge action applied")

	return state, nil
}

func (a *App) applyAction(ctx context.Context, req ActionRequest, action Action) (*models.CompetitorState, error) {
	t, err := a.tournaments.GetTournament(ctx, req.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	comp, err := a.repo.GetCompetitorByPosition(ctx, req.TournamentID, req.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to get competitor at position %d: %w", req.Position, err)
	}

	names, err := a.tournaments.GetResolvedPuzzleNames(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve puzzle names: %w", err)
	}

	state, err := a.repo.ApplyTransactional(ctx, t.ID, comp.ID, func(current *models.CompetitorState, locked *models.Tournament) (*Change, error) {
		in := Input{Tournament: locked, Competitor: *comp, PuzzleNames: names, Now: a.clock.Now()}

		next, eventType, err := a.machine.Apply(current, action, in)
		if err != nil {
			return nil, err
		}
		return newChange(locked.ID, *comp, current, next, eventType, in.Now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", action, err)
	}
	return state, nil
}

// Tick evaluates the time-driven transitions for one competitor and returns
// the state to show. When nothing is due it returns current without touching
// storage, so it is safe to call on every poll. t only gates the first check;
// the transition itself is decided against the tournament read under lock.
func (a *App) Tick(ctx context.Context, t *models.Tournament, comp models.Competitor, names []string, current *models.CompetitorState) (*models.CompetitorState, error) {
	in := Input{Tournament: t, Competitor: comp, PuzzleNames: names, Now: a.clock.Now()}
	if _, due := a.machine.Due(current, in); !due {
		return current, nil
	}

	var applied TickKind
	state, err := a.repo.ApplyTransactional(ctx, t.ID, comp.ID, func(locked *models.CompetitorState, lockedTour *models.Tournament) (*Change, error) {
		in.Tournament = lockedTour
		in.Now = a.clock.Now()

		// Another poller may have applied it, or the clock may have been
		// paused or reset, while we waited for the lock.
		next, kind, eventType, ok := a.machine.Tick(locked, in)
		if !ok {
			return nil, nil
		}
		applied = kind
		return newChange(lockedTour.ID, comp, locked, next, eventType, in.Now)
	})
	if err != nil {
		if isConflict(err) {
			log.Debug().
				Str("competitor_id", comp.ID.String()).
				Msg("tick lost race, re-reading state")
			return a.repo.GetCompetitorState(ctx, comp.ID)
		}
		return nil, fmt.Errorf("failed to tick competitor %s: %w", comp.ID, err)
	}

	if applied != "" {
		ticksAppliedTotal.WithLabelValues(string(applied)).Inc()
		log.Info().
			Str("tournament_id", t.ID.String()).
			Str("competitor_id", comp.ID.String()).
			Str("tick", string(applied)).
			Str("status", string(state.Status)).
			Msg("tick applied")
	}
	return state, nil
}

func newChange(tournamentID uuid.UUID, comp models.Competitor, current, next *models.CompetitorState, eventType events.Type, at time.Time) (*Change, error) {
	var version int64
	if current != nil {
		version = current.Version
	}
	next.Version = version + 1
	next.UpdatedAt = at

	evt, err := events.New(tournamentID, eventType, events.CompetitorProgressPayload{
		TournamentID:  tournamentID.String(),
		CompetitorID:  comp.ID.String(),
		Position:      comp.Position,
		Status:        string(next.Status),
		CurrentPuzzle: next.CurrentPuzzle,
		StatusText:    next.StatusText,
		Version:       next.Version,
		OccurredAt:    at.UTC(),
	})
	if err != nil {
		return nil, err
	}
	return &Change{State: next, Event: evt}, nil
}
