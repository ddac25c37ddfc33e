package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/playoffs/go/internal/events"
)

// InsertTx inserts evt into the outbox inside tx, so the event commits or
// rolls back together with the state change that produced it.
func InsertTx(ctx context.Context, tx pgx.Tx, evt *events.Event) error {
	if err := validateEvent(evt); err != nil {
		return fmt.Errorf("invalid %s event: %w", evt.Type, err)
	}

	id := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO playoffs_outbox (id, tournament_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		id, evt.TournamentID, string(evt.Type), evt.Payload,
	); err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", evt.Type, err)
	}

	log.Debug().
		Str("event_id", id.String()).
		Str("tournament_id", evt.TournamentID.String()).
		Str("event_type", string(evt.Type)).
		Msg("outbox event inserted")
	return nil
}

func validateEvent(evt *events.Event) error {
	if !evt.Type.Known() {
		return fmt.Errorf("unknown event type %q", evt.Type)
	}
	if len(evt.Payload) == 0 {
		return fmt.Errorf("event payload cannot be empty")
	}
	return nil
}
