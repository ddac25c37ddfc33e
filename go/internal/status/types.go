package status

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/playoffs/go/internal/models"
	"github.com/mcdev12/playoffs/go/internal/projection"
)

// TournamentView is the tournament as pollers see it. Instants are UTC
// RFC3339 strings with sub-second precision.
type TournamentView struct {
	ID                 uuid.UUID   `json:"id"`
	DisplayName        string      `json:"display_name"`
	StartTime          *string     `json:"start_time"`
	IsPaused           bool        `json:"is_paused"`
	TotalPausedSeconds float64     `json:"total_paused_seconds"`
	LastPauseTime      *string     `json:"last_pause_time"`
	PuzzleIDs          []uuid.UUID `json:"puzzle_ids"`
	PuzzleNames        []string    `json:"puzzle_names"`
	PuzzlesCount       int         `json:"puzzles_count"`
}

// CompetitorStatus is one competitor with its raw state and histories.
type CompetitorStatus struct {
	ID                     uuid.UUID               `json:"id"`
	Position               int                     `json:"position"`
	DisplayName            string                  `json:"display_name"`
	HandicapSeconds        int                     `json:"handicap_seconds"`
	CurrentPuzzle          int                     `json:"current_puzzle"`
	Status                 models.CompetitorStatus `json:"status"`
	StatusText             string                  `json:"status_text"`
	FinishTimeStamp        *string                 `json:"finish_time_stamp"`
	PuzzleTimes            map[int]string          `json:"puzzle_times"`
	IncorrectAnswers       map[int]int             `json:"incorrect_answers"`
	SubmissionTimes        map[int][]string        `json:"submission_times"`
	IncorrectJudgmentTimes map[int][]string        `json:"incorrect_judgment_times"`
	Version                int64                   `json:"version"`
}

// Response is the single feed polled by the board and every judge console.
type Response struct {
	Tournament  TournamentView     `json:"tournament"`
	Competitors []CompetitorStatus `json:"competitors"`
	Board       projection.Board   `json:"board"`
	ServerTime  string             `json:"server_time"`
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatInstantPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatInstant(*t)
	return &s
}
