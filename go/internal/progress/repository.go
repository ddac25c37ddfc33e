package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/playoffs/go/internal/models"
	"github.com/mcdev12/playoffs/go/internal/outbox"
	"github.com/mcdev12/playoffs/go/internal/sqlutil"
	"github.com/mcdev12/playoffs/go/internal/tournament"
)

// Repository stores competitor states in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const stateColumns = `competitor_id, current_puzzle, status, status_text, finish_time_stamp,
	puzzle_times, incorrect_answers, submission_times, incorrect_judgment_times,
	hold_start_effective_ms, version, updated_at`

func scanState(row pgx.Row) (*models.CompetitorState, error) {
	var (
		s                                         models.CompetitorState
		status                                    string
		finish                                    pgtype.Timestamptz
		puzzleTimes, incorrect, subs, judgedTimes []byte
		holdStart                                 pgtype.Int8
	)
	if err := row.Scan(
		&s.CompetitorID, &s.CurrentPuzzle, &status, &s.StatusText, &finish,
		&puzzleTimes, &incorrect, &subs, &judgedTimes,
		&holdStart, &s.Version, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Status = models.CompetitorStatus(status)
	s.FinishTimeStamp = sqlutil.FromTimestamptz(finish)
	s.HoldStartEffective = sqlutil.FromNullMillis(holdStart)

	var err error
	if s.PuzzleTimes, err = sqlutil.DecodeIndexed[time.Time](puzzleTimes); err != nil {
		return nil, err
	}
	if s.IncorrectAnswers, err = sqlutil.DecodeIndexed[int](incorrect); err != nil {
		return nil, err
	}
	if s.SubmissionTimes, err = sqlutil.DecodeIndexed[[]time.Time](subs); err != nil {
		return nil, err
	}
	if s.IncorrectJudgmentTimes, err = sqlutil.DecodeIndexed[[]time.Time](judgedTimes); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) GetCompetitorByPosition(ctx context.Context, tournamentID uuid.UUID, position int) (*models.Competitor, error) {
	var c models.Competitor
	err := r.pool.QueryRow(ctx, `
		SELECT id, tournament_id, position, display_name, handicap_seconds
		FROM competitors
		WHERE tournament_id = $1 AND position = $2`,
		tournamentID, position,
	).Scan(&c.ID, &c.TournamentID, &c.Position, &c.DisplayName, &c.HandicapSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("competitor at position %d: %w", position, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get competitor: %w", err)
	}
	return &c, nil
}

// GetCompetitorState returns nil, nil when the competitor has no state row.
func (r *Repository) GetCompetitorState(ctx context.Context, competitorID uuid.UUID) (*models.CompetitorState, error) {
	s, err := scanState(r.pool.QueryRow(ctx,
		`SELECT `+stateColumns+` FROM competitor_states WHERE competitor_id = $1`, competitorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get competitor state: %w", err)
	}
	return s, nil
}

// ListStates returns the states of the given competitors keyed by id.
// Competitors without a row are absent from the map.
func (r *Repository) ListStates(ctx context.Context, competitorIDs []uuid.UUID) (map[uuid.UUID]*models.CompetitorState, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+stateColumns+` FROM competitor_states WHERE competitor_id = ANY($1)`, competitorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitor states: %w", err)
	}

	states, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.CompetitorState, error) {
		return scanState(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan competitor states: %w", err)
	}

	out := make(map[uuid.UUID]*models.CompetitorState, len(states))
	for _, s := range states {
		out[s.CompetitorID] = s
	}
	return out, nil
}

// ApplyTransactional locks the competitor's state row for the duration of fn
// and writes fn's Change, plus its outbox event, in the same transaction.
// A missing row is created as waiting first.
//
// The tournament row is share-locked before the state row, in the same order
// UpdateClock takes them, so a pause or reset cannot commit while fn decides.
func (r *Repository) ApplyTransactional(ctx context.Context, tournamentID, competitorID uuid.UUID, fn UpdateFunc) (*models.CompetitorState, error) {
	state, err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) (*models.CompetitorState, error) {
		t, err := tournament.ShareTx(ctx, tx, tournamentID)
		if err != nil {
			return nil, err
		}
		current, err := lockState(ctx, tx, competitorID)
		if err != nil {
			return nil, err
		}

		change, err := fn(current, t)
		if err != nil {
			return nil, err
		}
		if change == nil || change.State == nil {
			return current, nil
		}

		if err := updateState(ctx, tx, current.Version, change.State); err != nil {
			return nil, err
		}
		if change.Event != nil {
			if err := outbox.InsertTx(ctx, tx, change.Event); err != nil {
				return nil, err
			}
		}
		return change.State, nil
	})
	if err != nil {
		if isWriteConflict(err) {
			return nil, fmt.Errorf("%w: %v", models.ErrWriteConflict, err)
		}
		return nil, err
	}
	return state, nil
}

func lockState(ctx context.Context, tx pgx.Tx, competitorID uuid.UUID) (*models.CompetitorState, error) {
	query := `SELECT ` + stateColumns + ` FROM competitor_states WHERE competitor_id = $1 FOR UPDATE`

	s, err := scanState(tx.QueryRow(ctx, query, competitorID))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to lock competitor state: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO competitor_states (competitor_id, status, status_text)
		VALUES ($1, $2, $3)
		ON CONFLICT (competitor_id) DO NOTHING`,
		competitorID, string(models.StatusWaiting), models.StatusTextWaiting,
	); err != nil {
		return nil, fmt.Errorf("failed to create competitor state: %w", err)
	}

	s, err = scanState(tx.QueryRow(ctx, query, competitorID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock competitor state: %w", err)
	}
	return s, nil
}

func updateState(ctx context.Context, tx pgx.Tx, expectedVersion int64, s *models.CompetitorState) error {
	puzzleTimes, err := sqlutil.EncodeIndexed(s.PuzzleTimes)
	if err != nil {
		return err
	}
	incorrect, err := sqlutil.EncodeIndexed(s.IncorrectAnswers)
	if err != nil {
		return err
	}
	subs, err := sqlutil.EncodeIndexed(s.SubmissionTimes)
	if err != nil {
		return err
	}
	judgedTimes, err := sqlutil.EncodeIndexed(s.IncorrectJudgmentTimes)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE competitor_states
		SET current_puzzle = $3, status = $4, status_text = $5, finish_time_stamp = $6,
		    puzzle_times = $7, incorrect_answers = $8, submission_times = $9,
		    incorrect_judgment_times = $10, hold_start_effective_ms = $11,
		    version = $12, updated_at = $13
		WHERE competitor_id = $1 AND version = $2`,
		s.CompetitorID, expectedVersion,
		s.CurrentPuzzle, string(s.Status), s.StatusText, sqlutil.ToTimestamptz(s.FinishTimeStamp),
		puzzleTimes, incorrect, subs,
		judgedTimes, sqlutil.ToNullMillis(s.HoldStartEffective),
		s.Version, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update competitor state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("competitor %s moved past version %d: %w", s.CompetitorID, expectedVersion, models.ErrWriteConflict)
	}
	return nil
}
