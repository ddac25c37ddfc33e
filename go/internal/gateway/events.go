package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/playoffs/go/internal/events"
	"github.com/mcdev12/playoffs/go/internal/outbox"
)

// Notice is pushed to WebSocket clients when something in their tournament
// changed. Clients re-poll the status endpoint; the notice carries no state.
type Notice struct {
	ID           string      `json:"id"`
	TournamentID string      `json:"tournament_id"`
	CompetitorID string      `json:"competitor_id,omitempty"`
	Position     int         `json:"position,omitempty"`
	Type         events.Type `json:"type"`
	Timestamp    time.Time   `json:"timestamp"`
}

// competitorRef is the subset of a progress payload a notice needs.
type competitorRef struct {
	CompetitorID string `json:"competitor_id"`
	Position     int    `json:"position"`
}

// NoticeFromEnvelope converts a relayed outbox envelope into a notice.
func NoticeFromEnvelope(env outbox.Envelope) (uuid.UUID, *Notice, error) {
	eventType := events.Type(env.EventType)
	if !eventType.Known() {
		return uuid.Nil, nil, fmt.Errorf("unknown event type: %s", env.EventType)
	}

	tournamentID, err := uuid.Parse(env.TournamentID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("parse tournament ID: %w", err)
	}

	notice := &Notice{
		ID:           env.EventID,
		TournamentID: env.TournamentID,
		Type:         eventType,
		Timestamp:    env.Timestamp,
	}

	var ref competitorRef
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &ref); err != nil {
			return uuid.Nil, nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	notice.CompetitorID = ref.CompetitorID
	notice.Position = ref.Position

	return tournamentID, notice, nil
}
