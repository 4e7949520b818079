package wordle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/announce"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/identity"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/metrics"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/rating"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/store"
)

func newTestService(t *testing.T, repo store.Repository, names map[string]string) *Service {
	t.Helper()
	svc, err := NewService(repo, identity.NewResolver(identity.NewNameTable(names), nil), nil,
		Config{Channel: "room-1"}, metrics.New(), nil)
	if err != nil { t.Fatalf("NewService: %v", err) }
	return svc
}

func statsOf(t *testing.T, repo store.Repository) map[string]domain.Stats {
	t.Helper()
	list, err := repo.Stats(context.Background())
	if err != nil { t.Fatalf("Stats: %v", err) }
	out := make(map[string]domain.Stats, len(list))
	for _, s := range list {
		out[s.Participant] = s
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRecordPuzzleThreePlayers(t *testing.T) {
	repo := store.NewMemoryRepository()
	svc := newTestService(t, repo, nil)
	report, err := svc.RecordPuzzle(context.Background(), "100", []domain.Outcome{
		{Participant: "p1", Attempts: 3},
		{Participant: "p2", Attempts: 5},
		{Participant: "p3", Attempts: domain.Failed},
	})
	if err != nil { t.Fatalf("RecordPuzzle: %v", err) }
	if len(report.Entries) != 3 { t.Fatalf("entries = %v", report.Entries) }

	sum := 0.0
	for _, e := range report.Entries {
		sum += e.Delta
	}
	if !near(sum, 0) { t.Fatalf("deltas not zero-sum: %v", sum) }
	if report.Entries[0].Delta <= 0 || report.Entries[2].Delta >= 0 { t.Fatalf("report = %+v", report.Entries) }
	if report.Summary() != "p1:3 (15), p2:5 (10), p3:X (-5)" { t.Fatalf("summary = %q", report.Summary()) }

	st := statsOf(t, repo)
	if !near(st["p1"].Rating, 1535) || !near(st["p2"].Rating, 1500) || !near(st["p3"].Rating, 1465) {
		t.Fatalf("stats = %+v", st)
	}
	if st["p3"].TotalPoints != -5 || st["p3"].AvgAttempts != nil { t.Fatalf("p3 = %+v", st["p3"]) }
}

func TestRecordPuzzleSoloKeepsRating(t *testing.T) {
	repo := store.NewMemoryRepository()
	svc := newTestService(t, repo, nil)
	if _, err := svc.RecordPuzzle(context.Background(), "5", []domain.Outcome{{Participant: "solo", Attempts: 2}}); err != nil {
		t.Fatalf("RecordPuzzle: %v", err)
	}
	st := statsOf(t, repo)["solo"]
	if st.Rating != domain.DefaultRating || st.Games != 1 || st.TotalPoints != 18 { t.Fatalf("solo = %+v", st) }
}

func TestRecordPuzzleRejectsBadInput(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository(), nil)
	ctx := context.Background()
	if _, err := svc.RecordPuzzle(ctx, "1", nil); !errors.Is(err, ErrNoOutcomes) {
		t.Fatalf("expected ErrNoOutcomes, got %v", err)
	}
	if _, err := svc.RecordPuzzle(ctx, " ", []domain.Outcome{{Participant: "a", Attempts: 1}}); !errors.Is(err, ErrMissingPuzzleID) {
		t.Fatalf("expected ErrMissingPuzzleID, got %v", err)
	}
	dup := []domain.Outcome{{Participant: "a", Attempts: 1}, {Participant: "a", Attempts: 4}}
	if _, err := svc.RecordPuzzle(ctx, "1", dup); !errors.Is(err, ErrDuplicateParticipant) {
		t.Fatalf("expected ErrDuplicateParticipant, got %v", err)
	}
	bad := []domain.Outcome{{Participant: "a", Attempts: 7}}
	if _, err := svc.RecordPuzzle(ctx, "1", bad); !errors.Is(err, ErrInvalidAttempts) {
		t.Fatalf("expected ErrInvalidAttempts, got %v", err)
	}
}

func TestReprocessReplacesOutcome(t *testing.T) {
	repo := store.NewMemoryRepository()
	svc := newTestService(t, repo, nil)
	ctx := context.Background()
	first := []domain.Outcome{{Participant: "a", Attempts: 2}, {Participant: "b", Attempts: 4}}
	if _, err := svc.RecordPuzzle(ctx, "9", first); err != nil { t.Fatalf("RecordPuzzle: %v", err) }
	afterFirst := statsOf(t, repo)

	second := []domain.Outcome{{Participant: "a", Attempts: 5}, {Participant: "b", Attempts: 4}}
	report, err := svc.RecordPuzzle(ctx, "9", second)
	if err != nil { t.Fatalf("RecordPuzzle#2: %v", err) }

	st := statsOf(t, repo)
	if st["a"].Games != 1 || st["a"].TotalPoints != 10 { t.Fatalf("a not replaced: %+v", st["a"]) }
	// second pass starts from the committed ratings, K still at zero prior games
	if !near(report.Entries[0].Before, afterFirst["a"].Rating) { t.Fatalf("before = %v", report.Entries[0].Before) }
	if st["a"].Rating >= afterFirst["a"].Rating { t.Fatalf("a should lose rating on replay: %v", st["a"].Rating) }
}

func TestHandleAnnouncementSkipsUnresolvable(t *testing.T) {
	repo := store.NewMemoryRepository()
	svc := newTestService(t, repo, map[string]string{"carol": "333"})
	text := "**Your group is on a 3 day streak!**\n3/6: <@111> mystery\n4/6: @Carol"
	report, err := svc.HandleAnnouncement(context.Background(), announce.Announcement{Source: "room-1", ID: "m1", Text: text})
	if err != nil { t.Fatalf("HandleAnnouncement: %v", err) }
	if report == nil || len(report.Entries) != 2 { t.Fatalf("report = %+v", report) }
	if len(report.Unresolved) != 1 || report.Unresolved[0] != "mystery" { t.Fatalf("unresolved = %v", report.Unresolved) }

	st := statsOf(t, repo)
	if _, ok := st["111"]; !ok { t.Fatalf("111 missing: %v", st) }
	if _, ok := st["333"]; !ok { t.Fatalf("333 missing: %v", st) }
	if len(st) != 2 { t.Fatalf("unexpected participants: %v", st) }
}

func TestHandleAnnouncementIgnoresOtherMessages(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository(), nil)
	report, err := svc.HandleAnnouncement(context.Background(), announce.Announcement{Source: "room-1", ID: "m", Text: "hello"})
	if err != nil || report != nil { t.Fatalf("report = %v err = %v", report, err) }
}

// racingRepo lets another writer commit first on the first Commit call.
type racingRepo struct {
	*store.MemoryRepository
	mu      sync.Mutex
	commits int
	race    func()
}

func (r *racingRepo) Commit(ctx context.Context, c *domain.PuzzleCommit) error {
	r.mu.Lock()
	r.commits++
	n := r.commits
	r.mu.Unlock()
	if n == 1 && r.race != nil {
		r.race()
	}
	return r.MemoryRepository.Commit(ctx, c)
}

func TestRecordPuzzleRetriesOnStaleSnapshot(t *testing.T) {
	inner := store.NewMemoryRepository()
	repo := &racingRepo{MemoryRepository: inner}
	repo.race = func() {
		err := inner.Commit(context.Background(), &domain.PuzzleCommit{
			PuzzleID: "other",
			Before:   map[string]domain.Prior{"a": {Rating: domain.DefaultRating}},
			Rows:     []domain.PlayRow{{PuzzleID: "other", Participant: "a", Attempts: 1, Points: 25, Rating: 1600}},
		})
		if err != nil { t.Fatalf("racing commit: %v", err) }
	}
	svc := newTestService(t, repo, nil)

	_, err := svc.RecordPuzzle(context.Background(), "1", []domain.Outcome{
		{Participant: "a", Attempts: 2},
		{Participant: "b", Attempts: 3},
	})
	if err != nil { t.Fatalf("RecordPuzzle: %v", err) }
	if repo.commits != 2 { t.Fatalf("commits = %d", repo.commits) }

	st := statsOf(t, inner)
	if st["a"].Games != 2 { t.Fatalf("racing play lost: %+v", st["a"]) }
	e := rating.Default
	wantB := domain.DefaultRating + e.K(0)*(0-e.Expected(1500, 1600))
	wantA := 1600 + e.K(1)*(1-e.Expected(1600, 1500))
	if !near(st["b"].Rating, wantB) || !near(st["a"].Rating, wantA) {
		t.Fatalf("ratings not recomputed from fresh state: a=%v b=%v", st["a"].Rating, st["b"].Rating)
	}
}

type alwaysStale struct{ *store.MemoryRepository }

func (alwaysStale) Commit(context.Context, *domain.PuzzleCommit) error { return store.ErrStaleSnapshot }

func TestRecordPuzzleGivesUpAfterRetries(t *testing.T) {
	svc := newTestService(t, alwaysStale{store.NewMemoryRepository()}, nil)
	_, err := svc.RecordPuzzle(context.Background(), "1", []domain.Outcome{{Participant: "a", Attempts: 1}})
	if !errors.Is(err, store.ErrStaleSnapshot) { t.Fatalf("expected ErrStaleSnapshot, got %v", err) }
}

func TestConcurrentPuzzlesDoNotLoseUpdates(t *testing.T) {
	repo := store.NewMemoryRepository()
	svc := newTestService(t, repo, nil)
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RecordPuzzle(context.Background(), fmt.Sprint(i), []domain.Outcome{
				{Participant: "a", Attempts: domain.Attempts(1 + i%6)},
				{Participant: "b", Attempts: 3},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil { t.Fatalf("RecordPuzzle: %v", err) }
	}
	st := statsOf(t, repo)
	if st["a"].Games != 20 || st["b"].Games != 20 { t.Fatalf("games = %d/%d", st["a"].Games, st["b"].Games) }
}

func TestResetClearsLeaderboard(t *testing.T) {
	repo := store.NewMemoryRepository()
	svc := newTestService(t, repo, nil)
	ctx := context.Background()
	_, _ = svc.RecordPuzzle(ctx, "1", []domain.Outcome{{Participant: "a", Attempts: 1}})
	if err := svc.Reset(ctx); err != nil { t.Fatalf("Reset: %v", err) }
	board, err := svc.Leaderboard(ctx)
	if err != nil || len(board) != 0 { t.Fatalf("board = %v err = %v", board, err) }
}
