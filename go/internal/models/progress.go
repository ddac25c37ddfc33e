package models

import (
	"time"

	"github.com/google/uuid"
)

// CompetitorStatus is the progress state of a competitor.
type CompetitorStatus string

const (
	StatusWaiting        CompetitorStatus = "waiting"
	StatusSolving        CompetitorStatus = "solving"
	StatusJudging        CompetitorStatus = "judging"
	StatusPendingPenalty CompetitorStatus = "pending_penalty"
	StatusFinished       CompetitorStatus = "finished"
)

// StatusTextWaiting is the cached status text of a freshly created state.
const StatusTextWaiting = "Waiting to start"

// CompetitorState is the mutable progress record of one competitor.
//
// The four histories are sparse and keyed by puzzle index. A missing key
// means nothing happened for that puzzle.
type CompetitorState struct {
	CompetitorID    uuid.UUID        `json:"competitor_id"`
	CurrentPuzzle   int              `json:"current_puzzle"`
	Status          CompetitorStatus `json:"status"`
	StatusText      string           `json:"status_text"`
	FinishTimeStamp *time.Time       `json:"finish_time_stamp,omitempty"`

	PuzzleTimes            map[int]time.Time   `json:"puzzle_times"`
	IncorrectAnswers       map[int]int         `json:"incorrect_answers"`
	SubmissionTimes        map[int][]time.Time `json:"submission_times"`
	IncorrectJudgmentTimes map[int][]time.Time `json:"incorrect_judgment_times"`

	// HoldStartEffective is the effective contest time of the last submission
	// on the final puzzle. The penalty hold is measured from it.
	HoldStartEffective *time.Duration `json:"-"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWaitingState returns the initial state for a competitor.
func NewWaitingState(competitorID uuid.UUID) *CompetitorState {
	return &CompetitorState{
		CompetitorID:           competitorID,
		Status:                 StatusWaiting,
		StatusText:             StatusTextWaiting,
		PuzzleTimes:            map[int]time.Time{},
		IncorrectAnswers:       map[int]int{},
		SubmissionTimes:        map[int][]time.Time{},
		IncorrectJudgmentTimes: map[int][]time.Time{},
	}
}

// Clone returns a deep copy so transitions never alias the caller's maps.
func (s *CompetitorState) Clone() *CompetitorState {
	c := *s
	if s.FinishTimeStamp != nil {
		ts := *s.FinishTimeStamp
		c.FinishTimeStamp = &ts
	}
	if s.HoldStartEffective != nil {
		h := *s.HoldStartEffective
		c.HoldStartEffective = &h
	}
	c.PuzzleTimes = make(map[int]time.Time, len(s.PuzzleTimes))
	for k, v := range s.PuzzleTimes {
		c.PuzzleTimes[k] = v
	}
	c.IncorrectAnswers = make(map[int]int, len(s.IncorrectAnswers))
	for k, v := range s.IncorrectAnswers {
		c.IncorrectAnswers[k] = v
	}
	c.SubmissionTimes = cloneTimeLists(s.SubmissionTimes)
	c.IncorrectJudgmentTimes = cloneTimeLists(s.IncorrectJudgmentTimes)
	return &c
}

func cloneTimeLists(in map[int][]time.Time) map[int][]time.Time {
	out := make(map[int][]time.Time, len(in))
	for k, v := range in {
		out[k] = append([]time.Time(nil), v...)
	}
	return out
}

// FirstSubmission returns the earliest submission on puzzle i.
func (s *CompetitorState) FirstSubmission(i int) (time.Time, bool) {
	subs := s.SubmissionTimes[i]
	if len(subs) == 0 {
		return time.Time{}, false
	}
	return subs[0], true
}

// LastSubmission returns the most recent submission on puzzle i.
func (s *CompetitorState) LastSubmission(i int) (time.Time, bool) {
	subs := s.SubmissionTimes[i]
	if len(subs) == 0 {
		return time.Time{}, false
	}
	return subs[len(subs)-1], true
}

// LastIncorrectJudgment returns the most recent incorrect judgment on puzzle i.
func (s *CompetitorState) LastIncorrectJudgment(i int) (time.Time, bool) {
	judged := s.IncorrectJudgmentTimes[i]
	if len(judged) == 0 {
		return time.Time{}, false
	}
	return judged[len(judged)-1], true
}

// HasSubmissions reports whether puzzle i was ever submitted.
func (s *CompetitorState) HasSubmissions(i int) bool {
	return len(s.SubmissionTimes[i]) > 0
}

// TotalIncorrect sums incorrect judgments over every puzzle.
func (s *CompetitorState) TotalIncorrect() int {
	total := 0
	for _, n := range s.IncorrectAnswers {
		total += n
	}
	return total
}

// CompetitorProgress pairs a roster entry with its state. State is nil when no
// row exists yet.
type CompetitorProgress struct {
	Competitor Competitor       `json:"competitor"`
	State      *CompetitorState `json:"state"`
}
