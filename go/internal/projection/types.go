package projection

import (
	"time"

	"github.com/mcdev12/playoffs/go/internal/models"
)

// PuzzleState is the render state of one puzzle line.
type PuzzleState string

const (
	PuzzleNotStarted     PuzzleState = "not_started"
	PuzzleOnHold         PuzzleState = "on_hold"
	PuzzleSolving        PuzzleState = "solving"
	PuzzleJudging        PuzzleState = "judging"
	PuzzleCorrect        PuzzleState = "correct"
	PuzzlePendingPenalty PuzzleState = "pending_penalty"
)

// Colors used by the display board.
const (
	ColorCyan   = "cyan"
	ColorYellow = "yellow"
	ColorLime   = "lime"
	ColorPink   = "pink"
	ColorGray   = "gray"
	ColorRed    = "red"
)

// Unknown is shown for a missing end timestamp.
const Unknown = "??:??"

// Input is everything a projection reads. Competitors must be ordered by
// position; a nil State projects as waiting.
type Input struct {
	Tournament  *models.Tournament
	PuzzleNames []string
	Competitors []models.CompetitorProgress
	Now         time.Time
}

// PuzzleLine is one row of a competitor card.
type PuzzleLine struct {
	Index   int         `json:"index"`
	Name    string      `json:"name"`
	State   PuzzleState `json:"state"`
	Start   string      `json:"start,omitempty"`
	End     string      `json:"end,omitempty"`
	Markers int         `json:"incorrect_markers"`
	Tag     string      `json:"tag,omitempty"`
	Color   string      `json:"color"`
	Text    string      `json:"text"`
}

// GlobalLine replaces or follows the puzzle list: countdowns, penalty
// waits and finish times.
type GlobalLine struct {
	Label   string `json:"label"`
	Focus   string `json:"focus,omitempty"`
	Markers int    `json:"incorrect_markers,omitempty"`
	Color   string `json:"color,omitempty"`
	Text    string `json:"text"`
}

// Button is one judge console action.
type Button struct {
	Action  string `json:"action"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// JudgeView is what the judge console of one competitor shows.
type JudgeView struct {
	Title          string   `json:"title"`
	Prompt         string   `json:"prompt"`
	Buttons        []Button `json:"buttons"`
	PollIntervalMs int      `json:"poll_interval_ms"`
}

// CompetitorView is the projected card of one competitor.
type CompetitorView struct {
	Position       int                     `json:"position"`
	DisplayName    string                  `json:"display_name"`
	Status         models.CompetitorStatus `json:"status"`
	StatusText     string                  `json:"status_text"`
	Puzzles        []PuzzleLine            `json:"puzzles"`
	Global         *GlobalLine             `json:"global,omitempty"`
	PenaltyMinutes int                     `json:"penalty_minutes"`
	Judge          JudgeView               `json:"judge"`
}

// ClockLine is the big board timer.
type ClockLine struct {
	Text      string `json:"text"`
	Countdown int    `json:"countdown,omitempty"`
	Running   bool   `json:"running"`
	Paused    bool   `json:"paused"`
}

// Board is the projection of a whole tournament.
type Board struct {
	Clock          ClockLine        `json:"clock"`
	FinalStage     bool             `json:"final_stage"`
	PollIntervalMs int              `json:"poll_interval_ms"`
	Competitors    []CompetitorView `json:"competitors"`
}

// Poll intervals in milliseconds.
const (
	BoardFastPollMs = 250
	BoardSlowPollMs = 1000
	JudgeFastPollMs = 250
	JudgeSlowPollMs = 2000
)

// earlyGame is how long after effective zero the board keeps polling fast.
const earlyGame = 30 * time.Second
