package projection

import (
	"fmt"
	"time"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/models"
)

// Judge action names as posted by the console.
const (
	actionSubmit    = "submit_answer"
	actionCorrect   = "correct"
	actionIncorrect = "incorrect"
)

// Judge renders the console for one competitor.
func (p *Projector) Judge(t *models.Tournament, names []string, c models.Competitor, s *models.CompetitorState, wall time.Time) JudgeView {
	view := JudgeView{
		Title:          "Judge for: " + c.DisplayName,
		Buttons:        []Button{},
		PollIntervalMs: JudgeSlowPollMs,
	}
	last := t.LastPuzzleIndex()

	switch s.Status {
	case models.StatusWaiting:
		view.Buttons = append(view.Buttons, Button{Action: actionSubmit, Label: "Answer submitted", Enabled: false})
		if !t.Started() {
			view.Prompt = fmt.Sprintf("Waiting for %s to start.", t.DisplayName)
			break
		}
		view.PollIntervalMs = JudgeFastPollMs

		first := nameAt(names, 0, "the first puzzle")
		eff, _ := clock.EffectiveNow(t, wall)
		if toStart := ceilSeconds(c.Handicap() - eff); toStart > 0 {
			view.Prompt = fmt.Sprintf("Give %s to competitor after %ds.", first, toStart)
		} else {
			view.Prompt = fmt.Sprintf("Ready to start solving %s.", first)
		}

	case models.StatusSolving:
		i := s.CurrentPuzzle
		var label string
		switch {
		case i == last:
			label = fmt.Sprintf("Answer to %s submitted", nameAt(names, last, "the final puzzle"))
		case !s.HasSubmissions(i):
			label = fmt.Sprintf("Answer submitted and I have given them %s", nameAt(names, i+1, "the next puzzle"))
		default:
			label = "Fixed answer submitted"
		}
		view.Buttons = append(view.Buttons, Button{Action: actionSubmit, Label: label, Enabled: true})
		view.Prompt = "Competitor is solving: " + nameAt(names, i, fmt.Sprintf("Puzzle %d", i+1))

	case models.StatusJudging:
		i := s.CurrentPuzzle - 1
		incorrect := "Incorrect; I will immediately hand them back the puzzle"
		if i == last {
			view.PollIntervalMs = JudgeFastPollMs
			// Counts down from the submission being judged.
			remaining := clock.CeilSeconds(p.hold)
			if elapsed, ok := clock.HoldElapsed(t, s, wall); ok {
				remaining = clock.CeilSeconds(p.hold - elapsed)
			}
			incorrect = fmt.Sprintf("Incorrect; I will hold on to the puzzle for a waiting period of %ds", remaining)
		}
		view.Buttons = append(view.Buttons,
			Button{Action: actionCorrect, Label: "Correct Answer", Enabled: true},
			Button{Action: actionIncorrect, Label: incorrect, Enabled: true},
		)
		view.Prompt = "Awaiting your judgment for: " + nameAt(names, i, fmt.Sprintf("Puzzle %d", i+1))

	case models.StatusPendingPenalty:
		view.PollIntervalMs = JudgeFastPollMs
		remaining := clock.CeilSeconds(clock.HoldRemaining(t, s, wall, p.hold))
		view.Prompt = fmt.Sprintf("Return %s in exactly %d more seconds.",
			nameAt(names, last, "the final puzzle"), remaining)

	case models.StatusFinished:
		view.Prompt = "Finished!"
	}
	return view
}
