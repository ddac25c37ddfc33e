package progress

import (
	"fmt"
	"time"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/events"
	"github.com/mcdev12/playoffs/go/internal/models"
)

// Input is the read-only context a transition is computed against.
type Input struct {
	Tournament  *models.Tournament
	Competitor  models.Competitor
	PuzzleNames []string
	Now         time.Time
}

func (in Input) puzzleName(i int) string {
	if i >= 0 && i < len(in.PuzzleNames) {
		return in.PuzzleNames[i]
	}
	return fmt.Sprintf("Puzzle %d", i+1)
}

// Machine computes competitor transitions. It never touches storage; every
// method returns a new state and leaves its argument unchanged.
type Machine struct {
	cfg clock.Config
}

func NewMachine(cfg clock.Config) *Machine {
	return &Machine{cfg: cfg}
}

// Apply runs a judge action against current.
func (m *Machine) Apply(current *models.CompetitorState, action Action, in Input) (*models.CompetitorState, events.Type, error) {
	if current == nil {
		current = models.NewWaitingState(in.Competitor.ID)
	}
	if current.Status != action.RequiredStatus() {
		return nil, "", fmt.Errorf("cannot %s while %s: %w", action, current.Status, models.ErrInvalidAction)
	}

	next := current.Clone()
	count := in.Tournament.PuzzleCount()

	switch action {
	case ActionSubmitAnswer:
		if next.CurrentPuzzle >= count {
			return nil, "", fmt.Errorf("no puzzle %d to submit: %w", next.CurrentPuzzle, models.ErrInvalidAction)
		}
		i := next.CurrentPuzzle
		next.SubmissionTimes[i] = append(next.SubmissionTimes[i], in.Now)
		next.HoldStartEffective = nil
		if i == in.Tournament.LastPuzzleIndex() {
			if eff, ok := clock.EffectiveNow(in.Tournament, in.Now); ok {
				next.HoldStartEffective = &eff
			}
		}
		next.CurrentPuzzle++
		next.Status = models.StatusJudging
		next.StatusText = "Awaiting judgment for " + in.puzzleName(i)
		return next, events.TypeAnswerSubmitted, nil

	case ActionCorrect:
		i := next.CurrentPuzzle - 1
		if i < 0 {
			return nil, "", fmt.Errorf("nothing submitted to judge: %w", models.ErrInvalidAction)
		}
		next.PuzzleTimes[i] = in.Now
		if next.CurrentPuzzle >= count {
			finished := in.Now
			next.Status = models.StatusFinished
			next.FinishTimeStamp = &finished
			next.StatusText = "Finished"
			return next, events.TypeCompetitorFinished, nil
		}
		next.Status = models.StatusSolving
		next.StatusText = "Solving: " + in.puzzleName(next.CurrentPuzzle)
		return next, events.TypeAnswerJudgedCorrect, nil

	case ActionIncorrect:
		i := next.CurrentPuzzle - 1
		if i < 0 {
			return nil, "", fmt.Errorf("nothing submitted to judge: %w", models.ErrInvalidAction)
		}
		next.IncorrectJudgmentTimes[i] = append(next.IncorrectJudgmentTimes[i], in.Now)
		next.IncorrectAnswers[i]++
		if i == in.Tournament.LastPuzzleIndex() {
			next.Status = models.StatusPendingPenalty
			next.StatusText = "Waiting for puzzle return"
			return next, events.TypeAnswerJudgedIncorrect, nil
		}
		next.CurrentPuzzle = i
		next.Status = models.StatusSolving
		next.StatusText = "Incorrect. Re-solving " + in.puzzleName(i)
		return next, events.TypeAnswerJudgedIncorrect, nil
	}

	return nil, "", fmt.Errorf("unknown action %q: %w", action, models.ErrInvalidAction)
}

// Due reports which tick, if any, is due for current at in.Now.
func (m *Machine) Due(current *models.CompetitorState, in Input) (TickKind, bool) {
	t := in.Tournament
	if !t.Started() || t.PuzzleCount() == 0 {
		return "", false
	}

	status := models.StatusWaiting
	if current != nil {
		status = current.Status
	}

	switch status {
	case models.StatusWaiting:
		if t.IsPaused {
			return "", false
		}
		eff, _ := clock.EffectiveNow(t, in.Now)
		if eff-in.Competitor.Handicap() >= m.cfg.SettleGrace {
			return TickAutoStart, true
		}
	case models.StatusPendingPenalty:
		if clock.HoldRemaining(t, current, in.Now, m.cfg.PenaltyHold) == 0 {
			return TickPenaltyExpiry, true
		}
	}
	return "", false
}

// Tick applies the due time-driven transition. ok is false when nothing is
// due, in which case the state must not be written.
func (m *Machine) Tick(current *models.CompetitorState, in Input) (next *models.CompetitorState, kind TickKind, eventType events.Type, ok bool) {
	kind, ok = m.Due(current, in)
	if !ok {
		return nil, "", "", false
	}
	if current == nil {
		current = models.NewWaitingState(in.Competitor.ID)
	}

	next = current.Clone()
	switch kind {
	case TickAutoStart:
		next.CurrentPuzzle = 0
		next.Status = models.StatusSolving
		next.StatusText = "Solving: " + in.puzzleName(0)
		return next, kind, events.TypeCompetitorStarted, true

	case TickPenaltyExpiry:
		last := in.Tournament.LastPuzzleIndex()
		next.CurrentPuzzle = last
		next.Status = models.StatusSolving
		next.StatusText = "Incorrect. Re-solving " + in.puzzleName(last)
		next.HoldStartEffective = nil
		return next, kind, events.TypePenaltyExpired, true
	}
	return nil, "", "", false
}

// PenaltyRemaining returns the hold left for a pending_penalty competitor.
func (m *Machine) PenaltyRemaining(current *models.CompetitorState, t *models.Tournament, wall time.Time) time.Duration {
	return clock.HoldRemaining(t, current, wall, m.cfg.PenaltyHold)
}
