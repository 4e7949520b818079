package wordle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/announce"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/identity"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/metrics"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/rating"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/store"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/writelock"
	"go.uber.org/zap"
)

var (
	ErrDuplicateParticipant = errors.New("participant appears twice in one puzzle")
	ErrNoOutcomes           = errors.New("puzzle has no outcomes")
	ErrInvalidAttempts      = errors.New("invalid attempts value")
	ErrMissingPuzzleID      = errors.New("puzzle id is required")
)

const (
	defaultCommitRetries = 3
	defaultLockKey       = "commit"
)

type Config struct {
	Channel       string
	Header        string
	Points        domain.PointsTable
	Engine        rating.Engine
	CommitRetries int
	LockKey       string
}

// Service turns announcements into committed rating updates.
type Service struct {
	extractor *announce.Extractor
	resolver  *identity.Resolver
	engine    rating.Engine
	points    domain.PointsTable
	repo      store.Repository
	locker    writelock.Locker
	retries   int
	lockKey   string
	metrics   *metrics.Recorder
	logger    *zap.Logger
}

func NewService(repo store.Repository, resolver *identity.Resolver, locker writelock.Locker, cfg Config, rec *metrics.Recorder, logger *zap.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wordle repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = identity.NewResolver(nil, logger)
	}
	if locker == nil {
		locker = writelock.NewLocalLocker()
	}
	if cfg.Points == nil {
		cfg.Points = domain.DefaultPoints
	}
	if cfg.Engine == (rating.Engine{}) {
		cfg.Engine = rating.Default
	}
	if cfg.CommitRetries <= 0 {
		cfg.CommitRetries = defaultCommitRetries
	}
	if strings.TrimSpace(cfg.LockKey) == "" {
		cfg.LockKey = defaultLockKey
	}
	for a := domain.Failed; a <= domain.MaxAttempts; a++ {
		if _, ok := cfg.Points.Points(a); !ok {
			return nil, fmt.Errorf("points table has no value for %s", a)
		}
	}

	return &Service{
		extractor: announce.NewExtractor(announce.Options{Channel: cfg.Channel, Header: cfg.Header}),
		resolver:  resolver,
		engine:    cfg.Engine,
		points:    cfg.Points,
		repo:      repo,
		locker:    locker,
		retries:   cfg.CommitRetries,
		lockKey:   cfg.LockKey,
		metrics:   rec,
		logger:    logger,
	}, nil
}

type ReportEntry struct {
	Participant string
	Attempts    domain.Attempts
	Points      int
	Before      float64
	After       float64
	Delta       float64
}

// Report describes one committed puzzle. Entries follow outcome order.
type Report struct {
	PuzzleID   string
	Entries    []ReportEntry
	Unresolved []string
}

// Summary renders entries as "id:attempts (pts)" pairs.
func (r *Report) Summary() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		parts = append(parts, fmt.Sprintf("%s:%s (%d)", e.Participant, e.Attempts, e.Points))
	}
	return strings.Join(parts, ", ")
}

// HandleAnnouncement extracts, resolves and records one announcement. A nil
// report with nil error means the message carried no results.
func (s *Service) HandleAnnouncement(ctx context.Context, a announce.Announcement) (*Report, error) {
	res, ok := s.extractor.Extract(a)
	if !ok {
		s.metrics.AnnouncementIgnored()
		s.logger.Debug("announcement_ignored", zap.String("source", a.Source), zap.String("id", a.ID))
		return nil, nil
	}

	resolution := s.resolver.ResolveClaims(res.PuzzleID, res.Claims)
	s.metrics.UnresolvedTokens(len(resolution.Unresolved))
	if len(resolution.Outcomes) == 0 {
		s.logger.Info("puzzle_without_participants",
			zap.String("puzzle_id", res.PuzzleID),
			zap.Strings("unresolved", resolution.Unresolved),
		)
		return &Report{PuzzleID: res.PuzzleID, Unresolved: resolution.Unresolved}, nil
	}

	report, err := s.RecordPuzzle(ctx, res.PuzzleID, resolution.Outcomes)
	if err != nil {
		return nil, err
	}
	report.Unresolved = resolution.Unresolved
	return report, nil
}

// RecordPuzzle rates and commits one puzzle. Repeating a puzzle replaces its
// rows; ratings move again from the current committed state.
func (s *Service) RecordPuzzle(ctx context.Context, puzzleID string, outcomes []domain.Outcome) (*Report, error) {
	puzzleID = strings.TrimSpace(puzzleID)
	if puzzleID == "" {
		return nil, ErrMissingPuzzleID
	}
	participants, err := validateOutcomes(outcomes)
	if err != nil {
		return nil, fmt.Errorf("puzzle %s: %w", puzzleID, err)
	}

	release, err := s.locker.Acquire(ctx, s.lockKey)
	if err != nil {
		return nil, fmt.Errorf("puzzle %s: %w", puzzleID, err)
	}
	defer release()

	for attempt := 1; attempt <= s.retries+1; attempt++ {
		start := time.Now()
		prior, err := s.repo.Snapshot(ctx, puzzleID, participants)
		if err != nil {
			return nil, fmt.Errorf("snapshot puzzle %s: %w", puzzleID, err)
		}

		commit, report := s.compute(puzzleID, prior, outcomes)
		err = s.repo.Commit(ctx, commit)
		if errors.Is(err, store.ErrStaleSnapshot) {
			s.metrics.CommitConflict()
			s.logger.Warn("commit_conflict", zap.String("puzzle_id", puzzleID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("commit puzzle %s: %w", puzzleID, err)
		}

		s.metrics.PuzzleRecorded(time.Since(start))
		s.logger.Info("puzzle_recorded",
			zap.String("puzzle_id", puzzleID),
			zap.Int("participants", len(report.Entries)),
			zap.String("results", report.Summary()),
		)
		return report, nil
	}
	return nil, fmt.Errorf("commit puzzle %s after %d attempts: %w", puzzleID, s.retries+1, store.ErrStaleSnapshot)
}

func (s *Service) compute(puzzleID string, prior map[string]domain.Prior, outcomes []domain.Outcome) (*domain.PuzzleCommit, *Report) {
	deltas := s.engine.Deltas(prior, outcomes)
	commit := &domain.PuzzleCommit{PuzzleID: puzzleID, Before: prior, Rows: make([]domain.PlayRow, 0, len(outcomes))}
	report := &Report{PuzzleID: puzzleID, Entries: make([]ReportEntry, 0, len(outcomes))}
	for _, o := range outcomes {
		before := prior[o.Participant].Rating
		pts, _ := s.points.Points(o.Attempts)
		after := before + deltas[o.Participant]
		commit.Rows = append(commit.Rows, domain.PlayRow{
			PuzzleID:    puzzleID,
			Participant: o.Participant,
			Attempts:    o.Attempts,
			Points:      pts,
			Rating:      after,
		})
		report.Entries = append(report.Entries, ReportEntry{
			Participant: o.Participant,
			Attempts:    o.Attempts,
			Points:      pts,
			Before:      before,
			After:       after,
			Delta:       deltas[o.Participant],
		})
	}
	return commit, report
}

func validateOutcomes(outcomes []domain.Outcome) ([]string, error) {
	if len(outcomes) == 0 {
		return nil, ErrNoOutcomes
	}
	participants := make([]string, 0, len(outcomes))
	seen := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if strings.TrimSpace(o.Participant) == "" {
			return nil, fmt.Errorf("empty participant id: %w", ErrNoOutcomes)
		}
		if !o.Attempts.Valid() {
			return nil, fmt.Errorf("%s: %w %d", o.Participant, ErrInvalidAttempts, int(o.Attempts))
		}
		if _, dup := seen[o.Participant]; dup {
			return nil, fmt.Errorf("%s: %w", o.Participant, ErrDuplicateParticipant)
		}
		seen[o.Participant] = struct{}{}
		participants = append(participants, o.Participant)
	}
	return participants, nil
}

// Leaderboard returns the aggregated stats of every rated participant.
func (s *Service) Leaderboard(ctx context.Context) ([]domain.Stats, error) {
	return s.repo.Stats(ctx)
}

// Reset wipes all recorded puzzles and ratings.
func (s *Service) Reset(ctx context.Context) error {
	release, err := s.locker.Acquire(ctx, s.lockKey)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	defer release()
	if err := s.repo.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.logger.Warn("store_reset")
	return nil
}
