package tournament

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/playoffs/go/internal/models"
	"github.com/mcdev12/playoffs/go/internal/outbox"
	"github.com/mcdev12/playoffs/go/internal/sqlutil"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tournamentColumns = `id, display_name, puzzle_ids, start_time, is_paused,
	total_paused_ms, last_pause_time, created_at, updated_at`

func scanTournament(row pgx.Row) (*models.Tournament, error) {
	var (
		t         models.Tournament
		startTime pgtype.Timestamptz
		lastPause pgtype.Timestamptz
	)
	if err := row.Scan(
		&t.ID, &t.DisplayName, &t.PuzzleIDs, &startTime, &t.IsPaused,
		&t.TotalPausedMillis, &lastPause, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.StartTime = sqlutil.FromTimestamptz(startTime)
	t.LastPauseTime = sqlutil.FromTimestamptz(lastPause)
	if t.PuzzleIDs == nil {
		t.PuzzleIDs = []uuid.UUID{}
	}
	return &t, nil
}

func (r *Repository) GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
	t, err := scanTournament(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tournament %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return t, nil
}

// ShareTx reads the tournament inside tx under FOR SHARE, so its clock cannot
// change until tx ends. UpdateClock takes FOR UPDATE on the same row.
func ShareTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Tournament, error) {
	row := tx.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR SHARE`, id)
	t, err := scanTournament(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tournament %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to share-lock tournament: %w", err)
	}
	return t, nil
}

func (r *Repository) GetCompetitors(ctx context.Context, tournamentID uuid.UUID) ([]models.Competitor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tournament_id, position, display_name, handicap_seconds
		FROM competitors
		WHERE tournament_id = $1
		ORDER BY position`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get competitors: %w", err)
	}

	competitors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Competitor, error) {
		var c models.Competitor
		err := row.Scan(&c.ID, &c.TournamentID, &c.Position, &c.DisplayName, &c.HandicapSeconds)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan competitors: %w", err)
	}
	return competitors, nil
}

func (r *Repository) GetPuzzles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Puzzle, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title FROM puzzles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get puzzles: %w", err)
	}

	puzzles, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.Puzzle])
	if err != nil {
		return nil, fmt.Errorf("failed to scan puzzles: %w", err)
	}

	out := make(map[uuid.UUID]models.Puzzle, len(puzzles))
	for _, p := range puzzles {
		out[p.ID] = p
	}
	return out, nil
}

// UpdateClock locks the tournament row, lets fn mutate it and writes the
// result together with its outbox event.
func (r *Repository) UpdateClock(ctx context.Context, id uuid.UUID, fn ClockFunc) (*models.Tournament, error) {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) (*models.Tournament, error) {
		row := tx.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
		t, err := scanTournament(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("tournament %s: %w", id, models.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to lock tournament: %w", err)
		}

		change, err := fn(t)
		if err != nil {
			return nil, err
		}
		if change == nil {
			return t, nil
		}

		if err := tx.QueryRow(ctx, `
			UPDATE tournaments
			SET start_time = $2, is_paused = $3, total_paused_ms = $4,
			    last_pause_time = $5, updated_at = now()
			WHERE id = $1
			RETURNING updated_at`,
			id,
			sqlutil.ToTimestamptz(t.StartTime),
			t.IsPaused,
			t.TotalPausedMillis,
			sqlutil.ToTimestamptz(t.LastPauseTime),
		).Scan(&t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to update tournament clock: %w", err)
		}

		if change.ResetStates {
			if err := bulkResetStates(ctx, tx, id); err != nil {
				return nil, err
			}
		}
		if change.Event != nil {
			if err := outbox.InsertTx(ctx, tx, change.Event); err != nil {
				return nil, err
			}
		}
		return t, nil
	})
}

// BulkResetStates discards every competitor state of the tournament and
// recreates them as waiting.
func (r *Repository) BulkResetStates(ctx context.Context, tournamentID uuid.UUID) error {
	_, err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		return struct{}{}, bulkResetStates(ctx, tx, tournamentID)
	})
	return err
}

func bulkResetStates(ctx context.Context, tx pgx.Tx, tournamentID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM competitor_states
		WHERE competitor_id IN (SELECT id FROM competitors WHERE tournament_id = $1)`,
		tournamentID,
	); err != nil {
		return fmt.Errorf("failed to delete competitor states: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO competitor_states (competitor_id, status, status_text)
		SELECT id, $2, $3 FROM competitors WHERE tournament_id = $1`,
		tournamentID, string(models.StatusWaiting), models.StatusTextWaiting,
	); err != nil {
		return fmt.Errorf("failed to recreate competitor states: %w", err)
	}
	return nil
}

func (r *Repository) CreateTournament(ctx context.Context, req CreateTournamentRequest) (*models.Tournament, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tournaments (id, display_name)
		VALUES ($1, $2)
		RETURNING `+tournamentColumns,
		uuid.New(), req.DisplayName,
	)
	t, err := scanTournament(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert tournament: %w", err)
	}
	return t, nil
}

// ConfigureTournament replaces the puzzle order and roster in one transaction.
func (r *Repository) ConfigureTournament(ctx context.Context, id uuid.UUID, puzzleIDs []uuid.UUID, competitors []models.Competitor) (*models.Tournament, error) {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) (*models.Tournament, error) {
		row := tx.QueryRow(ctx, `
			UPDATE tournaments SET puzzle_ids = $2, updated_at = now()
			WHERE id = $1
			RETURNING `+tournamentColumns,
			id, puzzleIDs,
		)
		t, err := scanTournament(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("tournament %s: %w", id, models.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to update puzzle order: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM competitors WHERE tournament_id = $1`, id); err != nil {
			return nil, fmt.Errorf("failed to delete competitors: %w", err)
		}

		batch := &pgx.Batch{}
		for _, c := range competitors {
			batch.Queue(`
				INSERT INTO competitors (id, tournament_id, position, display_name, handicap_seconds)
				VALUES ($1, $2, $3, $4, $5)`,
				c.ID, id, c.Position, c.DisplayName, c.HandicapSeconds)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("failed to insert competitors: %w", err)
		}

		if err := bulkResetStates(ctx, tx, id); err != nil {
			return nil, err
		}
		return t, nil
	})
}

func (r *Repository) CreatePuzzle(ctx context.Context, req CreatePuzzleRequest) (*models.Puzzle, error) {
	p := models.Puzzle{ID: uuid.New(), Title: req.Title}
	if _, err := r.pool.Exec(ctx, `INSERT INTO puzzles (id, title) VALUES ($1, $2)`, p.ID, p.Title); err != nil {
		return nil, fmt.Errorf("failed to insert puzzle: %w", err)
	}
	return &p, nil
}
