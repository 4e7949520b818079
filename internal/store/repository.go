// Package store persists puzzle outcomes and participant ratings and derives
// the leaderboard from them.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
	"go.uber.org/zap"
)

// ErrStaleSnapshot is returned by Commit when the ratings or play counts a
// commit was computed from have changed. Callers re-read and retry.
var ErrStaleSnapshot = errors.New("rating snapshot is stale")

// Repository is the persistence contract of the rating engine. Reads only
// observe committed state; Commit and Reset are atomic.
type Repository interface {
	FetchRating(ctx context.Context, participant string) (float64, error)
	// FetchPlayCount counts recorded puzzles of participant, excluding excludePuzzle.
	FetchPlayCount(ctx context.Context, participant, excludePuzzle string) (int, error)
	// Snapshot reads rating and play count of every participant in one consistent read.
	Snapshot(ctx context.Context, puzzleID string, participants []string) (map[string]domain.Prior, error)
	Commit(ctx context.Context, c *domain.PuzzleCommit) error
	Stats(ctx context.Context) ([]domain.Stats, error)
	Reset(ctx context.Context) error
	Close() error
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Options struct {
	Backend     string
	DatabaseURL string
	DBFile      string
	Logger      *zap.Logger
}

// Open builds the configured backend and makes sure its schema exists.
func Open(ctx context.Context, opts Options) (Repository, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendMemory:
		return NewMemoryRepository(), nil
	case BackendPostgres:
		r, err := NewPostgresRepository(opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := r.EnsureSchema(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		logger.Info("store_open", zap.String("backend", BackendPostgres))
		return r, nil
	case BackendSQLite:
		r, err := NewSQLiteRepository(opts.DBFile)
		if err != nil {
			return nil, err
		}
		logger.Info("store_open", zap.String("backend", BackendSQLite), zap.String("file", opts.DBFile))
		return r, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// checkSnapshot compares committed state against the state a commit was computed from.
func checkSnapshot(current, before map[string]domain.Prior) error {
	for p, want := range before {
		got, ok := current[p]
		if !ok {
			got = domain.Prior{Rating: domain.DefaultRating}
		}
		if got.Rating != want.Rating || got.Games != want.Games {
			return fmt.Errorf("%w: participant %s", ErrStaleSnapshot, p)
		}
	}
	return nil
}

func participantsOf(c *domain.PuzzleCommit) []string {
	out := make([]string, 0, len(c.Rows))
	for _, r := range c.Rows {
		out = append(out, r.Participant)
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func sortStats(stats []domain.Stats) {
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Rating != stats[j].Rating {
			return stats[i].Rating > stats[j].Rating
		}
		return stats[i].Participant < stats[j].Participant
	})
}
