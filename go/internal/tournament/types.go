package tournament

import (
	"github.com/google/uuid"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/events"
	"github.com/mcdev12/playoffs/go/internal/models"
)

// CreateTournamentRequest represents the data needed to create a tournament
type CreateTournamentRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=200"`
}

// CompetitorInput is one roster line of a configure request.
type CompetitorInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	Country         string `json:"country,omitempty" validate:"omitempty,max=60"`
	DisplayName     string `json:"display_name,omitempty" validate:"omitempty,max=150"`
	HandicapSeconds int    `json:"handicap_seconds" validate:"gte=0,lte=86400"`
}

// ConfigureTournamentRequest replaces a tournament's puzzle order and roster.
// Positions are assigned 1..n in roster order.
type ConfigureTournamentRequest struct {
	PuzzleIDs   []uuid.UUID       `json:"puzzle_ids" validate:"required,min=1,dive,required"`
	Competitors []CompetitorInput `json:"competitors" validate:"dive"`
}

// CreatePuzzleRequest adds a puzzle to the catalogue.
type CreatePuzzleRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// ClockChange is what a ClockFunc wants written. ResetStates also recreates
// every competitor state as waiting in the same transaction.
type ClockChange struct {
	Transition  clock.Transition
	Event       *events.Event
	ResetStates bool
}

// ClockFunc mutates the locked tournament. A nil change leaves the row as is.
type ClockFunc func(t *models.Tournament) (*ClockChange, error)
