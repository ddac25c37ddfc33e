package clock

import (
	"time"

	"github.com/mcdev12/playoffs/go/internal/models"
)

// The penalty hold runs on effective time, so a pause freezes it together
// with the rest of the contest.

// HoldStart returns the effective time the penalty hold began: the last
// submission on the final puzzle.
func HoldStart(t *models.Tournament, s *models.CompetitorState) (time.Duration, bool) {
	if s.HoldStartEffective != nil {
		return *s.HoldStartEffective, true
	}
	last, ok := s.LastSubmission(t.LastPuzzleIndex())
	if !ok {
		return 0, false
	}
	return Effective(t, last)
}

// HoldElapsed returns the effective time spent in the hold so far.
func HoldElapsed(t *models.Tournament, s *models.CompetitorState, wall time.Time) (time.Duration, bool) {
	start, ok := HoldStart(t, s)
	if !ok {
		return 0, false
	}
	now, ok := EffectiveNow(t, wall)
	if !ok {
		return 0, false
	}
	return now - start, true
}

// HoldRemaining returns the time left in the hold, never negative. A hold
// without a recorded start counts as expired.
func HoldRemaining(t *models.Tournament, s *models.CompetitorState, wall time.Time, hold time.Duration) time.Duration {
	elapsed, ok := HoldElapsed(t, s, wall)
	if !ok {
		return 0
	}
	if remaining := hold - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// CeilSeconds rounds d up to whole seconds.
func CeilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
