// Package projection turns persisted progress into the lines shown on the
// display board and the judge consoles. Everything here is a pure function
// of its input; nothing reads the clock or storage.
package projection

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/models"
)

// Projector renders boards. hold is the penalty hold used for remaining-time
// displays; it must match the one the state machine ticks with.
type Projector struct {
	hold time.Duration
}

func New(cfg clock.Config) *Projector {
	return &Projector{hold: cfg.PenaltyHold}
}

// Project renders the whole tournament.
func (p *Projector) Project(in Input) Board {
	t := in.Tournament
	effNow, started := clock.EffectiveNow(t, in.Now)

	board := Board{
		Clock:       ClockLineFor(t, in.Now),
		FinalStage:  FinalStage(t, in.Competitors),
		Competitors: make([]CompetitorView, 0, len(in.Competitors)),
	}

	for _, cp := range in.Competitors {
		state := cp.State
		if state == nil {
			state = models.NewWaitingState(cp.Competitor.ID)
		}
		board.Competitors = append(board.Competitors, p.competitor(t, in.PuzzleNames, cp.Competitor, state, in.Now, effNow, started))
	}

	board.PollIntervalMs = boardPollInterval(t, in.Competitors, effNow)
	return board
}

func (p *Projector) competitor(t *models.Tournament, names []string, c models.Competitor, s *models.CompetitorState, wall time.Time, effNow time.Duration, started bool) CompetitorView {
	view := CompetitorView{
		Position:       c.Position,
		DisplayName:    c.DisplayName,
		Status:         s.Status,
		StatusText:     p.StatusText(t, c, s, wall),
		Puzzles:        []PuzzleLine{},
		PenaltyMinutes: PenaltyMinutes(s, t.LastPuzzleIndex()),
		Judge:          p.Judge(t, names, c, s, wall),
	}

	if s.Status == models.StatusWaiting {
		view.Global = waitingLine(c, effNow, started)
		return view
	}

	for i := range names {
		view.Puzzles = append(view.Puzzles, PuzzleLineFor(t, names, c, s, i, effNow))
	}
	view.Global = p.trailingLine(t, s, wall)
	return view
}

// StatusText is the display override of the cached status text: a countdown
// while waiting after the start, and the seconds left in a penalty hold.
func (p *Projector) StatusText(t *models.Tournament, c models.Competitor, s *models.CompetitorState, wall time.Time) string {
	if !t.Started() {
		return s.StatusText
	}
	switch s.Status {
	case models.StatusWaiting:
		eff, _ := clock.EffectiveNow(t, wall)
		if remaining := c.Handicap() - eff; remaining > 0 {
			return "Waiting to start " + FormatClock(time.Duration(clock.CeilSeconds(remaining))*time.Second)
		}
	case models.StatusPendingPenalty:
		if remaining := clock.HoldRemaining(t, s, wall, p.hold); remaining > 0 {
			return strconv.Itoa(clock.CeilSeconds(remaining))
		}
	}
	return s.StatusText
}

// PuzzleLineFor renders puzzle i of a competitor that has started.
func PuzzleLineFor(t *models.Tournament, names []string, c models.Competitor, s *models.CompetitorState, i int, effNow time.Duration) PuzzleLine {
	line := PuzzleLine{
		Index:   i,
		Name:    nameAt(names, i, fmt.Sprintf("Puzzle %d", i+1)),
		Start:   puzzleStart(t, c, s, i),
		Markers: s.IncorrectAnswers[i],
	}

	lastSubmission := func() string {
		if at, ok := s.LastSubmission(i); ok {
			return FormatClock(effectiveAt(t, at))
		}
		return Unknown
	}

	switch {
	case s.Status == models.StatusJudging && i == s.CurrentPuzzle-1:
		line.State, line.Color, line.Tag = PuzzleJudging, ColorCyan, "JUDGING"
		line.End = lastSubmission()

	case i == s.CurrentPuzzle:
		line.State, line.Color = PuzzleSolving, ColorYellow
		line.End = FormatClock(effNow)
		if line.Markers > 0 {
			line.Tag = "FIXING"
		}

	case hasPuzzleTime(s, i):
		line.State, line.Color, line.Tag = PuzzleCorrect, ColorLime, "CORRECT"
		line.End = lastSubmission()

	case i == t.LastPuzzleIndex() && s.Status == models.StatusPendingPenalty:
		// The incorrect that started the hold is shown on the global line.
		line.State, line.Color = PuzzlePendingPenalty, ColorYellow
		line.End = lastSubmission()
		line.Markers = max(line.Markers-1, 0)

	case s.CurrentPuzzle < i && s.HasSubmissions(i-1):
		line.State, line.Color, line.Tag = PuzzleOnHold, ColorPink, "ON HOLD"
		line.End = Unknown
		if at, ok := s.LastIncorrectJudgment(s.CurrentPuzzle); ok {
			line.End = FormatClock(effectiveAt(t, at))
		}

	default:
		return PuzzleLine{
			Index: i,
			Name:  line.Name,
			State: PuzzleNotStarted,
			Color: ColorGray,
			Text:  "not started",
		}
	}

	line.Text = puzzleText(line.Start, line.End, line.Markers, line.Tag)
	return line
}

// puzzleStart is the handicap for the first puzzle and the first submission
// on the previous puzzle otherwise.
func puzzleStart(t *models.Tournament, c models.Competitor, s *models.CompetitorState, i int) string {
	if i == 0 {
		return FormatClock(c.Handicap())
	}
	if at, ok := s.FirstSubmission(i - 1); ok {
		return FormatClock(effectiveAt(t, at))
	}
	return FormatClock(0)
}

func hasPuzzleTime(s *models.CompetitorState, i int) bool {
	_, ok := s.PuzzleTimes[i]
	return ok
}

func waitingLine(c models.Competitor, effNow time.Duration, started bool) *GlobalLine {
	if !started {
		text := "Get Ready"
		if c.HandicapSeconds > 0 {
			text += fmt.Sprintf(" [+%ds]", c.HandicapSeconds)
		}
		return &GlobalLine{Label: text, Color: ColorYellow, Text: text}
	}

	toStart := max(ceilSeconds(c.Handicap()-effNow), 0)
	focus := strconv.Itoa(toStart) + "s"
	return &GlobalLine{Label: "Starting in", Focus: focus, Text: "Starting in " + focus}
}

// trailingLine follows the puzzle list for penalties, finishes and a final
// answer awaiting judgment.
func (p *Projector) trailingLine(t *models.Tournament, s *models.CompetitorState, wall time.Time) *GlobalLine {
	switch {
	case s.Status == models.StatusPendingPenalty:
		remaining := clock.CeilSeconds(clock.HoldRemaining(t, s, wall, p.hold))
		focus := strconv.Itoa(remaining) + "s"
		label := "X [INCORRECT], Waiting for"
		return &GlobalLine{Label: label, Focus: focus, Markers: 1, Color: ColorRed, Text: label + " " + focus}

	case s.Status == models.StatusFinished:
		finish, penalty := FinishTime(t, s)
		label := "Finished at"
		if penalty > 0 {
			label = fmt.Sprintf("Finished (with %dm penalty) at", penalty)
		}
		focus := FormatClock(finish)
		return &GlobalLine{Label: label, Focus: focus, Color: ColorLime, Text: label + " " + focus}

	case s.Status == models.StatusJudging && s.CurrentPuzzle == t.PuzzleCount():
		return &GlobalLine{Label: "", Focus: "Finished?", Color: ColorYellow, Text: "Finished?"}
	}
	return nil
}

// PenaltyMinutes counts incorrect judgments on every puzzle but the last.
// The final puzzle's incorrects already cost the hold instead.
func PenaltyMinutes(s *models.CompetitorState, lastIndex int) int {
	return s.TotalIncorrect() - s.IncorrectAnswers[lastIndex]
}

// FinishTime is the displayed finish: the effective time of the last
// submission on the final puzzle plus one minute per penalty minute.
func FinishTime(t *models.Tournament, s *models.CompetitorState) (time.Duration, int) {
	last := t.LastPuzzleIndex()
	penalty := PenaltyMinutes(s, last)

	var finish time.Duration
	if at, ok := s.LastSubmission(last); ok {
		finish = effectiveAt(t, at)
	}
	return finish + time.Duration(penalty)*time.Minute, penalty
}

// FinalStage reports whether anyone has submitted the final puzzle.
func FinalStage(t *models.Tournament, competitors []models.CompetitorProgress) bool {
	last := t.LastPuzzleIndex()
	if last < 0 {
		return false
	}
	for _, cp := range competitors {
		if cp.State != nil && cp.State.HasSubmissions(last) {
			return true
		}
	}
	return false
}

// ClockLineFor renders the board timer.
func ClockLineFor(t *models.Tournament, wall time.Time) ClockLine {
	eff, ok := clock.EffectiveNow(t, wall)
	if !ok {
		return ClockLine{Text: "Waiting to start"}
	}

	line := ClockLine{Running: clock.Running(t), Paused: t.IsPaused}
	if eff < 0 {
		line.Countdown = -ceilSeconds(eff) + 1
		line.Text = "Starting in " + strconv.Itoa(line.Countdown)
		return line
	}
	line.Text = FormatClock(eff)
	return line
}

func boardPollInterval(t *models.Tournament, competitors []models.CompetitorProgress, effNow time.Duration) int {
	if !clock.Running(t) {
		return BoardSlowPollMs
	}
	if effNow < earlyGame {
		return BoardFastPollMs
	}

	last := t.LastPuzzleIndex()
	for _, cp := range competitors {
		status := models.StatusWaiting
		current := 0
		if cp.State != nil {
			status = cp.State.Status
			current = cp.State.CurrentPuzzle
		}
		switch {
		case status == models.StatusWaiting && effNow >= 0,
			status == models.StatusPendingPenalty,
			status == models.StatusJudging && current-1 == last:
			return BoardFastPollMs
		}
	}
	return BoardSlowPollMs
}
