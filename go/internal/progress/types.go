package progress

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/playoffs/go/internal/events"
	"github.com/mcdev12/playoffs/go/internal/models"
)

// Action is a judge action. The set is closed: use ParseAction to build one
// from untrusted input.
type Action string

const (
	ActionSubmitAnswer Action = "submit_answer"
	ActionCorrect      Action = "correct"
	ActionIncorrect    Action = "incorrect"
)

// ParseAction validates a raw action name.
func ParseAction(raw string) (Action, error) {
	switch a := Action(raw); a {
	case ActionSubmitAnswer, ActionCorrect, ActionIncorrect:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q: %w", raw, models.ErrInvalidAction)
}

// RequiredStatus is the only status in which the action is legal.
func (a Action) RequiredStatus() models.CompetitorStatus {
	switch a {
	case ActionSubmitAnswer:
		return models.StatusSolving
	default:
		return models.StatusJudging
	}
}

// ActionRequest is a judge action addressed by public position.
type ActionRequest struct {
	TournamentID uuid.UUID `json:"tournament_id" validate:"required"`
	Position     int       `json:"position" validate:"gte=0"`
	Action       string    `json:"action" validate:"required,oneof=submit_answer correct incorrect"`
}

// Change is what an update function wants written. A nil Change leaves the
// row untouched.
type Change struct {
	State *models.CompetitorState
	Event *events.Event
}

// UpdateFunc computes a Change from the locked current state and the
// tournament clock as read under the same lock.
type UpdateFunc func(current *models.CompetitorState, t *models.Tournament) (*Change, error)

// TickKind names a time-driven transition.
type TickKind string

const (
	TickAutoStart     TickKind = "auto_start"
	TickPenaltyExpiry TickKind = "penalty_expiry"
)
