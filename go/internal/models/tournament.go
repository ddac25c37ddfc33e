package models

import (
	"time"

	"github.com/google/uuid"
)

// Tournament is a single live contest. PuzzleIDs is the solve order.
type Tournament struct {
	ID                 uuid.UUID   `json:"id"`
	DisplayName        string      `json:"display_name"`
	PuzzleIDs          []uuid.UUID `json:"puzzle_ids"`
	StartTime          *time.Time  `json:"start_time,omitempty"`
	IsPaused           bool        `json:"is_paused"`
	TotalPausedMillis  int64       `json:"total_paused_ms"`
	LastPauseTime      *time.Time  `json:"last_pause_time,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// PuzzleCount returns the number of puzzles in the solve order.
func (t *Tournament) PuzzleCount() int {
	return len(t.PuzzleIDs)
}

// LastPuzzleIndex returns the index of the final puzzle, or -1 for an empty order.
func (t *Tournament) LastPuzzleIndex() int {
	return len(t.PuzzleIDs) - 1
}

// TotalPaused returns the time spent paused since the last reset.
func (t *Tournament) TotalPaused() time.Duration {
	return time.Duration(t.TotalPausedMillis) * time.Millisecond
}

// Started reports whether the tournament has been started since its last reset.
func (t *Tournament) Started() bool {
	return t.StartTime != nil
}

// Competitor is a roster entry. Position is the public key used by judge consoles.
type Competitor struct {
	ID              uuid.UUID `json:"id"`
	TournamentID    uuid.UUID `json:"tournament_id"`
	Position        int       `json:"position"`
	DisplayName     string    `json:"display_name"`
	HandicapSeconds int       `json:"handicap_seconds"`
}

// Handicap returns the competitor's start delay as a duration.
func (c *Competitor) Handicap() time.Duration {
	return time.Duration(c.HandicapSeconds) * time.Second
}

// Puzzle is read-only reference data owned by the puzzle catalogue.
type Puzzle struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}
