package projection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/models"
)

var epoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func sec(n float64) time.Duration { return time.Duration(n * float64(time.Second)) }

// at returns the wall instant whose effective time is eff for a tournament
// started at epoch with no pauses.
func at(eff float64) time.Time { return epoch.Add(sec(eff)) }

func runningTournament(puzzles int) *models.Tournament {
	start := epoch
	t := &models.Tournament{ID: uuid.New(), DisplayName: "Finals", StartTime: &start}
	for i := 0; i < puzzles; i++ {
		t.PuzzleIDs = append(t.PuzzleIDs, uuid.New())
	}
	return t
}

func holdFrom(eff float64) *time.Duration {
	d := sec(eff)
	return &d
}

var names3 = []string{"Alpha", "Bravo", "Charlie"}

func competitor(handicap int) models.Competitor {
	return models.Competitor{ID: uuid.New(), Position: 1, DisplayName: "Ada [UK]", HandicapSeconds: handicap}
}

func project(t *models.Tournament, names []string, c models.Competitor, s *models.CompetitorState, now time.Time) (Board, CompetitorView) {
	b := New(clock.DefaultConfig()).Project(Input{
		Tournament:  t,
		PuzzleNames: names,
		Competitors: []models.CompetitorProgress{{Competitor: c, State: s}},
		Now:         now,
	})
	return b, b.Competitors[0]
}

func TestFormatClock(t *testing.T) {
	cases := map[time.Duration]string{
		0:            "00:00",
		sec(65):      "01:05",
		sec(65.9):    "01:05",
		sec(-4.3):    "-00:04",
		sec(-5):      "-00:05",
		sec(62*60+5): "62:05",
	}
	for d, want := range cases {
		assert.Equal(t, want, FormatClock(d), d.String())
	}
}

func TestProject_WaitingBeforeStart(t *testing.T) {
	tour := &models.Tournament{ID: uuid.New(), DisplayName: "Finals", PuzzleIDs: []uuid.UUID{uuid.New()}, IsPaused: true}
	c := competitor(30)

	b, v := project(tour, names3[:1], c, nil, epoch)

	assert.Equal(t, models.StatusWaiting, v.Status)
	assert.Equal(t, "Waiting to start", v.StatusText)
	assert.Empty(t, v.Puzzles)
	require.NotNil(t, v.Global)
	assert.Equal(t, "Get Ready [+30s]", v.Global.Text)
	assert.Equal(t, "Waiting for Finals to start.", v.Judge.Prompt)
	require.Len(t, v.Judge.Buttons, 1)
	assert.False(t, v.Judge.Buttons[0].Enabled)
	assert.Equal(t, JudgeSlowPollMs, v.Judge.PollIntervalMs)

	assert.Equal(t, "Waiting to start", b.Clock.Text)
	assert.Equal(t, BoardSlowPollMs, b.PollIntervalMs)
}

func TestProject_WaitingDuringHandicap(t *testing.T) {
	tour := runningTournament(3)
	c := competitor(30)

	b, v := project(tour, names3, c, models.NewWaitingState(c.ID), at(18.4))

	assert.Equal(t, "Starting in 12s", v.Global.Text)
	assert.Equal(t, "Waiting to start 00:12", v.StatusText)
	assert.Equal(t, "Give Alpha to competitor after 12s.", v.Judge.Prompt)
	assert.Equal(t, JudgeFastPollMs, v.Judge.PollIntervalMs)
	assert.Equal(t, BoardFastPollMs, b.PollIntervalMs)

	_, v = project(tour, names3, c, models.NewWaitingState(c.ID), at(31))
	assert.Equal(t, "Starting in 0s", v.Global.Text)
	assert.Equal(t, "Ready to start solving Alpha.", v.Judge.Prompt)
}

func TestProject_FixingEarlierPuzzleShowsOnHold(t *testing.T) {
	tour := runningTournament(3)
	c := competitor(0)
	s := models.NewWaitingState(c.ID)
	s.Status = models.StatusSolving
	s.SubmissionTimes[0] = []time.Time{at(100)}
	s.IncorrectJudgmentTimes[0] = []time.Time{at(150)}
	s.IncorrectAnswers[0] = 1

	_, v := project(tour, names3, c, s, at(170))
	require.Len(t, v.Puzzles, 3)

	fixing := v.Puzzles[0]
	assert.Equal(t, PuzzleSolving, fixing.State)
	assert.Equal(t, ColorYellow, fixing.Color)
	assert.Equal(t, "00:00 ~ 02:50 X [FIXING]", fixing.Text)

	hold := v.Puzzles[1]
	assert.Equal(t, PuzzleOnHold, hold.State)
	assert.Equal(t, ColorPink, hold.Color)
	assert.Equal(t, "01:40 ~ 02:30 [ON HOLD]", hold.Text)

	assert.Equal(t, PuzzleNotStarted, v.Puzzles[2].State)
	assert.Equal(t, "not started", v.Puzzles[2].Text)
	assert.Equal(t, ColorGray, v.Puzzles[2].Color)

	assert.Nil(t, v.Global)
	require.Len(t, v.Judge.Buttons, 1)
	assert.Equal(t, "Fixed answer submitted", v.Judge.Buttons[0].Label)
	assert.Equal(t, "Competitor is solving: Alpha", v.Judge.Prompt)
}

func TestProject_SolvingFirstAttemptAndLastPuzzleLabels(t *testing.T) {
	tour := runningTournament(3)
	c := competitor(0)
	s := models.NewWaitingState(c.ID)
	s.Status = models.StatusSolving

	_, v := project(tour, names3, c, s, at(40))
	assert.Equal(t, "Answer submitted and I have given them Bravo", v.Judge.Buttons[0].Label)
	assert.Equal(t, "00:00 ~ 00:40", v.Puzzles[0].Text)

	s.CurrentPuzzle = 2
	_, v = project(tour, names3, c, s, at(40))
	assert.Equal(t, "Answer to Charlie submitted", v.Judge.Buttons[0].Label)
}

func judgingFinal(c models.Competitor) *models.CompetitorState {
	s := models.NewWaitingState(c.ID)
	s.Status = models.StatusJudging
	s.CurrentPuzzle = 2
	s.SubmissionTimes[0] = []time.Time{at(60)}
	s.PuzzleTimes[0] = at(70)
	s.SubmissionTimes[1] = []time.Time{at(200)}
	s.HoldStartEffective = holdFrom(200)
	return s
}

func TestProject_JudgingFinalPuzzle(t *testing.T) {
	tour := runningTournament(2)
	c := competitor(0)

	b, v := project(tour, names3[:2], c, judgingFinal(c), at(215))

	assert.Equal(t, PuzzleCorrect, v.Puzzles[0].State)
	assert.Equal(t, "00:00 ~ 01:00 [CORRECT]", v.Puzzles[0].Text)
	assert.Equal(t, ColorLime, v.Puzzles[0].Color)

	assert.Equal(t, PuzzleJudging, v.Puzzles[1].State)
	assert.Equal(t, "01:00 ~ 03:20 [JUDGING]", v.Puzzles[1].Text)
	assert.Equal(t, ColorCyan, v.Puzzles[1].Color)

	require.NotNil(t, v.Global)
	assert.Equal(t, "Finished?", v.Global.Text)

	require.Len(t, v.Judge.Buttons, 2)
	assert.Equal(t, "Correct Answer", v.Judge.Buttons[0].Label)
	assert.Equal(t, "Incorrect; I will hold on to the puzzle for a waiting period of 45s", v.Judge.Buttons[1].Label)
	assert.Equal(t, "Awaiting your judgment for: Bravo", v.Judge.Prompt)
	assert.Equal(t, JudgeFastPollMs, v.Judge.PollIntervalMs)

	assert.True(t, b.FinalStage)
	assert.Equal(t, BoardFastPollMs, b.PollIntervalMs)
}

func TestProject_JudgingEarlierPuzzle(t *testing.T) {
	tour := runningTournament(3)
	c := competitor(0)
	s := models.NewWaitingState(c.ID)
	s.Status = models.StatusJudging
	s.CurrentPuzzle = 1
	s.SubmissionTimes[0] = []time.Time{at(90)}

	b, v := project(tour, names3, c, s, at(95))
	assert.Equal(t, "Incorrect; I will immediately hand them back the puzzle", v.Judge.Buttons[1].Label)
	assert.Nil(t, v.Global)
	assert.False(t, b.FinalStage)
	assert.Equal(t, BoardSlowPollMs, b.PollIntervalMs)
}

func TestProject_PendingPenalty(t *testing.T) {
	tour := runningTournament(2)
	c := competitor(0)
	s := judgingFinal(c)
	s.Status = models.StatusPendingPenalty
	s.IncorrectAnswers[1] = 1
	s.IncorrectJudgmentTimes[1] = []time.Time{at(210)}

	_, v := project(tour, names3[:2], c, s, at(215))

	line := v.Puzzles[1]
	assert.Equal(t, PuzzlePendingPenalty, line.State)
	assert.Equal(t, 0, line.Markers)
	assert.Equal(t, "01:00 ~ 03:20", line.Text)
	assert.Empty(t, line.Tag)

	require.NotNil(t, v.Global)
	assert.Equal(t, "X [INCORRECT], Waiting for 45s", v.Global.Text)
	assert.Equal(t, "45", v.StatusText)
	assert.Equal(t, "Return Bravo in exactly 45 more seconds.", v.Judge.Prompt)
	assert.Empty(t, v.Judge.Buttons)
}

func TestProject_PendingPenaltyFrozenWhilePaused(t *testing.T) {
	tour := runningTournament(2)
	c := competitor(0)
	s := judgingFinal(c)
	s.Status = models.StatusPendingPenalty
	s.IncorrectAnswers[1] = 1

	_, err := clock.Pause(tour, at(230))
	require.NoError(t, err)

	b, v := project(tour, names3[:2], c, s, at(900))
	assert.Equal(t, "30", v.StatusText)
	assert.True(t, b.Clock.Paused)
	assert.False(t, b.Clock.Running)
	assert.Equal(t, "03:50", b.Clock.Text)
	assert.Equal(t, BoardSlowPollMs, b.PollIntervalMs)
}

func TestProject_FinishedWithPenalty(t *testing.T) {
	tour := runningTournament(2)
	c := competitor(0)
	s := models.NewWaitingState(c.ID)
	s.Status = models.StatusFinished
	s.CurrentPuzzle = 2
	s.IncorrectAnswers[0] = 2
	s.IncorrectAnswers[1] = 1
	s.SubmissionTimes[0] = []time.Time{at(50), at(80), at(120)}
	s.PuzzleTimes[0] = at(125)
	s.SubmissionTimes[1] = []time.Time{at(300), at(400)}
	s.PuzzleTimes[1] = at(405)

	_, v := project(tour, names3[:2], c, s, at(500))

	assert.Equal(t, 2, v.PenaltyMinutes)
	require.NotNil(t, v.Global)
	assert.Equal(t, "Finished (with 2m penalty) at 08:40", v.Global.Text)
	assert.Equal(t, "00:00 ~ 02:00 X X [CORRECT]", v.Puzzles[0].Text)
	assert.Equal(t, "00:50 ~ 06:40 X [CORRECT]", v.Puzzles[1].Text)
	assert.Equal(t, "Finished!", v.Judge.Prompt)
}

func TestProject_FinishedClean(t *testing.T) {
	tour := runningTournament(1)
	c := competitor(0)
	s := models.NewWaitingState(c.ID)
	s.Status = models.StatusFinished
	s.CurrentPuzzle = 1
	s.SubmissionTimes[0] = []time.Time{at(95.7)}
	s.PuzzleTimes[0] = at(99)

	_, v := project(tour, names3[:1], c, s, at(120))
	assert.Equal(t, "Finished at 01:35", v.Global.Text)
	assert.Equal(t, 0, v.PenaltyMinutes)
}

func TestPenaltyMinutes_ExcludesFinalPuzzle(t *testing.T) {
	s := models.NewWaitingState(uuid.New())
	s.IncorrectAnswers[0] = 2
	s.IncorrectAnswers[2] = 1
	assert.Equal(t, 2, PenaltyMinutes(s, 2))
}

func TestClockLine(t *testing.T) {
	tour := runningTournament(1)

	line := ClockLineFor(tour, at(-4.3))
	assert.Equal(t, 5, line.Countdown)
	assert.Equal(t, "Starting in 5", line.Text)

	line = ClockLineFor(tour, at(75))
	assert.Equal(t, "01:15", line.Text)
	assert.True(t, line.Running)
	assert.False(t, line.Paused)
}
