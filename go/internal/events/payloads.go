package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the outbox event type. It is also the last token of the NATS subject.
type Type string

const (
	TypeCompetitorStarted     Type = "CompetitorStarted"
	TypeAnswerSubmitted       Type = "AnswerSubmitted"
	TypeAnswerJudgedCorrect   Type = "AnswerJudgedCorrect"
	TypeAnswerJudgedIncorrect Type = "AnswerJudgedIncorrect"
	TypePenaltyExpired        Type = "PenaltyExpired"
	TypeCompetitorFinished    Type = "CompetitorFinished"
	TypeTournamentStarted     Type = "TournamentStarted"
	TypeTournamentPaused      Type = "TournamentPaused"
	TypeTournamentResumed     Type = "TournamentResumed"
	TypeTournamentReset       Type = "TournamentReset"
)

// Known reports whether t is one of the event types above.
func (t Type) Known() bool {
	switch t {
	case TypeCompetitorStarted, TypeAnswerSubmitted, TypeAnswerJudgedCorrect,
		TypeAnswerJudgedIncorrect, TypePenaltyExpired, TypeCompetitorFinished,
		TypeTournamentStarted, TypeTournamentPaused, TypeTournamentResumed,
		TypeTournamentReset:
		return true
	}
	return false
}

// Event is a pending outbox row.
type Event struct {
	TournamentID uuid.UUID
	Type         Type
	Payload      []byte
}

// CompetitorProgressPayload is the payload for every competitor transition.
type CompetitorProgressPayload struct {
	TournamentID  string    `json:"tournament_id"`
	CompetitorID  string    `json:"competitor_id"`
	Position      int       `json:"position"`
	Status        string    `json:"status"`
	CurrentPuzzle int       `json:"current_puzzle"`
	StatusText    string    `json:"status_text"`
	Version       int64     `json:"version"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// TournamentClockPayload is the payload for start, pause, resume and reset.
type TournamentClockPayload struct {
	TournamentID       string     `json:"tournament_id"`
	StartTime          *time.Time `json:"start_time,omitempty"`
	IsPaused           bool       `json:"is_paused"`
	TotalPausedSeconds float64    `json:"total_paused_seconds"`
	OccurredAt         time.Time  `json:"occurred_at"`
}

// New marshals payload into an Event.
func New(tournamentID uuid.UUID, eventType Type, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Event{
		TournamentID: tournamentID,
		Type:         eventType,
		Payload:      data,
	}, nil
}
