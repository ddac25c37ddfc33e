package clock

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/playoffs/go/internal/models"
)

// Clock is the interface we use for wall-clock reads.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
}

// NewRealClock returns the production wall clock.
func NewRealClock() Clock {
	return clockwork.NewRealClock()
}

// Config holds the fixed contest timings.
type Config struct {
	StartCountdown time.Duration // delay between pressing start and effective zero
	SettleGrace    time.Duration // extra wait after a handicap before auto-start
	PenaltyHold    time.Duration // hold after an incorrect answer on the final puzzle
}

func DefaultConfig() Config {
	return Config{
		StartCountdown: 5 * time.Second,
		SettleGrace:    2 * time.Second,
		PenaltyHold:    60 * time.Second,
	}
}

// Transition names a clock change so callers can emit the matching event.
type Transition string

const (
	TransitionNone    Transition = ""
	TransitionStarted Transition = "started"
	TransitionResumed Transition = "resumed"
	TransitionPaused  Transition = "paused"
	TransitionReset   Transition = "reset"
)

// Effective returns the in-contest time at wall-clock instant at.
// The second result is false when the tournament has not started.
func Effective(t *models.Tournament, at time.Time) (time.Duration, bool) {
	if t.StartTime == nil {
		return 0, false
	}
	return at.Sub(*t.StartTime) - t.TotalPaused(), true
}

// FrozenNow returns the instant effective reads should use: the pause instant
// while paused, wall otherwise.
func FrozenNow(t *models.Tournament, wall time.Time) time.Time {
	if t.IsPaused && t.LastPauseTime != nil {
		return *t.LastPauseTime
	}
	return wall
}

// EffectiveNow is Effective evaluated at FrozenNow.
func EffectiveNow(t *models.Tournament, wall time.Time) (time.Duration, bool) {
	return Effective(t, FrozenNow(t, wall))
}

// Running reports whether contest time is currently advancing.
func Running(t *models.Tournament) bool {
	return t.StartTime != nil && !t.IsPaused
}

// StartOrUnpause starts a tournament that was never started, or resumes a
// paused one. Resuming a running tournament is a no-op.
func StartOrUnpause(t *models.Tournament, now time.Time, countdown time.Duration) Transition {
	if t.StartTime == nil {
		start := now.Add(countdown)
		t.StartTime = &start
		t.IsPaused = false
		t.LastPauseTime = nil
		return TransitionStarted
	}
	if !t.IsPaused {
		return TransitionNone
	}

	if t.LastPauseTime != nil {
		if paused := now.Sub(*t.LastPauseTime); paused > 0 {
			t.TotalPausedMillis += paused.Milliseconds()
		}
	}
	t.LastPauseTime = nil
	t.IsPaused = false
	return TransitionResumed
}

// Pause freezes contest time at now.
func Pause(t *models.Tournament, now time.Time) (Transition, error) {
	if t.StartTime == nil {
		return TransitionNone, fmt.Errorf("tournament has not started: %w", models.ErrInvalidAction)
	}
	if t.IsPaused {
		return TransitionNone, fmt.Errorf("tournament is already paused: %w", models.ErrInvalidAction)
	}
	t.IsPaused = true
	t.LastPauseTime = &now
	return TransitionPaused, nil
}

// Reset clears the clock back to its never-started state.
func Reset(t *models.Tournament) Transition {
	t.StartTime = nil
	t.IsPaused = true
	t.TotalPausedMillis = 0
	t.LastPauseTime = nil
	return TransitionReset
}
