package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
)

// serializationFailure is the SQLSTATE of a serializable transaction conflict.
const serializationFailure = "40001"

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS plays (
			puzzle_id   TEXT    NOT NULL,
			participant TEXT    NOT NULL,
			attempts    INTEGER,
			points      INTEGER NOT NULL,
			PRIMARY KEY (puzzle_id, participant)
		);
		CREATE INDEX IF NOT EXISTS plays_participant_idx ON plays (participant);
		CREATE TABLE IF NOT EXISTS ratings (
			participant TEXT PRIMARY KEY,
			rating      DOUBLE PRECISION NOT NULL DEFAULT 1500
		);`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRepository) FetchRating(ctx context.Context, participant string) (float64, error) {
	var rating float64
	err := r.db.QueryRowContext(ctx, `SELECT rating FROM ratings WHERE participant = $1`, participant).Scan(&rating)
	if err == sql.ErrNoRows {
		return domain.DefaultRating, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select rating: %w", err)
	}
	return rating, nil
}

func (r *PostgresRepository) FetchPlayCount(ctx context.Context, participant, excludePuzzle string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM plays WHERE participant = $1 AND puzzle_id <> $2`,
		participant, excludePuzzle,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count plays: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Snapshot(ctx context.Context, puzzleID string, participants []string) (map[string]domain.Prior, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out, err := snapshot(ctx, tx, puzzleID, participants)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return out, nil
}

func snapshot(ctx context.Context, q queryer, puzzleID string, participants []string) (map[string]domain.Prior, error) {
	out := make(map[string]domain.Prior, len(participants))
	for _, p := range participants {
		out[p] = domain.Prior{Rating: domain.DefaultRating}
	}
	if len(participants) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT participant, rating FROM ratings WHERE participant = ANY($1)`,
		pq.Array(participants),
	)
	if err != nil {
		return nil, fmt.Errorf("select ratings: %w", err)
	}
	for rows.Next() {
		var (
			p      string
			rating float64
		)
		if err := rows.Scan(&p, &rating); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		prior := out[p]
		prior.Rating = rating
		out[p] = prior
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select ratings: %w", err)
	}

	rows, err = q.QueryContext(ctx,
		`SELECT participant, COUNT(*) FROM plays
		 WHERE participant = ANY($1) AND puzzle_id <> $2
		 GROUP BY participant`,
		pq.Array(participants), puzzleID,
	)
	if err != nil {
		return nil, fmt.Errorf("count plays: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p string
			n int
		)
		if err := rows.Scan(&p, &n); err != nil {
			return nil, fmt.Errorf("scan play count: %w", err)
		}
		prior := out[p]
		prior.Games = n
		out[p] = prior
	}
	return out, rows.Err()
}

// Commit applies one puzzle in a serializable transaction. A concurrent writer
// touching the same participants surfaces as ErrStaleSnapshot.
func (r *PostgresRepository) Commit(ctx context.Context, c *domain.PuzzleCommit) error {
	if c == nil || len(c.Rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := snapshot(ctx, tx, c.PuzzleID, participantsOf(c))
	if err != nil {
		return mapPQError(err)
	}
	if err := checkSnapshot(current, c.Before); err != nil {
		return err
	}

	const upsertPlay = `
		INSERT INTO plays (puzzle_id, participant, attempts, points)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (puzzle_id, participant) DO UPDATE SET
			attempts = EXCLUDED.attempts,
			points = EXCLUDED.points`
	const upsertRating = `
		INSERT INTO ratings (participant, rating)
		VALUES ($1, $2)
		ON CONFLICT (participant) DO UPDATE SET rating = EXCLUDED.rating`

	for _, row := range c.Rows {
		var attempts sql.NullInt64
		if !row.Attempts.IsFailed() {
			attempts = sql.NullInt64{Int64: int64(row.Attempts), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, upsertPlay, c.PuzzleID, row.Participant, attempts, row.Points); err != nil {
			return mapPQError(fmt.Errorf("upsert play: %w", err))
		}
		if _, err := tx.ExecContext(ctx, upsertRating, row.Participant, row.Rating); err != nil {
			return mapPQError(fmt.Errorf("upsert rating: %w", err))
		}
	}
	if err := tx.Commit(); err != nil {
		return mapPQError(fmt.Errorf("commit puzzle %s: %w", c.PuzzleID, err))
	}
	return nil
}

func (r *PostgresRepository) Stats(ctx context.Context) ([]domain.Stats, error) {
	const query = `
		SELECT
			r.participant,
			r.rating,
			COUNT(p.puzzle_id),
			COUNT(p.attempts),
			ROUND(AVG(p.attempts)::numeric, 2),
			COALESCE(SUM(p.points), 0)
		FROM ratings r
		LEFT JOIN plays p ON p.participant = r.participant
		GROUP BY r.participant, r.rating
		ORDER BY r.rating DESC, r.participant ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}
	defer rows.Close()

	var out []domain.Stats
	for rows.Next() {
		var (
			s   domain.Stats
			avg sql.NullFloat64
		)
		if err := rows.Scan(&s.Participant, &s.Rating, &s.Games, &s.Wins, &avg, &s.TotalPoints); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		if avg.Valid {
			v := avg.Float64
			s.AvgAttempts = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Reset wipes plays and ratings together.
func (r *PostgresRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM plays`); err != nil {
		return fmt.Errorf("delete plays: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ratings`); err != nil {
		return fmt.Errorf("delete ratings: %w", err)
	}
	return tx.Commit()
}

func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == serializationFailure {
		return fmt.Errorf("%w: %v", ErrStaleSnapshot, err)
	}
	return err
}
