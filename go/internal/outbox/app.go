package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/playoffs/go/internal/models"
)

// OutboxRepository defines what the relay needs from the repository
type OutboxRepository interface {
	FetchUnsentOutbox(ctx context.Context, limit int) ([]OutboxEvent, error)
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
	CountPending(ctx context.Context) (int, error)
}

// App relays outbox rows in creation order.
type App struct {
	repo OutboxRepository
}

func NewApp(repo OutboxRepository) *App {
	return &App{repo: repo}
}

// BatchResult counts the outcome of one relay batch.
type BatchResult struct {
	Relayed int
	Failed  int
	Held    int // skipped behind an earlier failure of the same tournament
}

// PublishFunc delivers one event to the broker.
type PublishFunc func(ctx context.Context, event OutboxEvent) error

// Unsent returns the event if it still awaits relay. ok is false when it
// was already relayed or never existed.
func (a *App) Unsent(ctx context.Context, id uuid.UUID) (event *OutboxEvent, ok bool, err error) {
	event, err = a.repo.FetchOutboxByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch outbox event %s: %w", id, err)
	}
	return event, true, nil
}

// MarkRelayed records that the broker accepted the event.
func (a *App) MarkRelayed(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.MarkOutboxSent(ctx, id); err != nil {
		return fmt.Errorf("failed to mark event %s relayed: %w", id, err)
	}
	return nil
}

func (a *App) PendingCount(ctx context.Context) (int, error) {
	return a.repo.CountPending(ctx)
}

// RelayBatch publishes up to limit unsent events, oldest first.
//
// Clients of a tournament must see its notices in order, so after a failed
// publish every later event of that tournament is held for the next sweep.
// Other tournaments are unaffected.
func (a *App) RelayBatch(ctx context.Context, limit int, publish PublishFunc) (BatchResult, error) {
	var res BatchResult
	if limit <= 0 {
		return res, fmt.Errorf("batch limit must be positive, got %d", limit)
	}

	pending, err := a.repo.FetchUnsentOutbox(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("failed to fetch unsent events: %w", err)
	}

	blocked := make(map[uuid.UUID]bool)
	for _, event := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if blocked[event.TournamentID] {
			res.Held++
			continue
		}

		if err := publish(ctx, event); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("tournament_id", event.TournamentID.String()).
				Str("event_type", event.EventType).
				Msg("failed to relay event")
			blocked[event.TournamentID] = true
			res.Failed++
			continue
		}

		if err := a.MarkRelayed(ctx, event.ID); err != nil {
			// Published but not marked: the next sweep republishes and the
			// broker drops it by message ID.
			log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to mark event relayed")
			blocked[event.TournamentID] = true
			res.Failed++
			continue
		}
		res.Relayed++
	}

	if len(pending) > 0 {
		log.Debug().
			Int("relayed", res.Relayed).
			Int("failed", res.Failed).
			Int("held", res.Held).
			Msg("relayed outbox batch")
	}
	return res, nil
}
