package store

import (
	"context"
	"strings"
	"sync"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
)

// MemoryRepository keeps all state in process. Used by tests, replays and
// local runs without a database.
type MemoryRepository struct {
	mu sync.RWMutex

	plays   map[string]map[string]domain.PlayRow // participant -> puzzle -> row
	ratings map[string]float64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		plays:   make(map[string]map[string]domain.PlayRow),
		ratings: make(map[string]float64),
	}
}

func (m *MemoryRepository) FetchRating(_ context.Context, participant string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ratingLocked(participant), nil
}

func (m *MemoryRepository) FetchPlayCount(_ context.Context, participant, excludePuzzle string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countLocked(participant, excludePuzzle), nil
}

func (m *MemoryRepository) Snapshot(_ context.Context, puzzleID string, participants []string) (map[string]domain.Prior, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(puzzleID, participants), nil
}

func (m *MemoryRepository) Commit(_ context.Context, c *domain.PuzzleCommit) error {
	if c == nil || len(c.Rows) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkSnapshot(m.snapshotLocked(c.PuzzleID, participantsOf(c)), c.Before); err != nil {
		return err
	}
	for _, row := range c.Rows {
		byPuzzle, ok := m.plays[row.Participant]
		if !ok {
			byPuzzle = make(map[string]domain.PlayRow)
			m.plays[row.Participant] = byPuzzle
		}
		byPuzzle[row.PuzzleID] = row
		m.ratings[row.Participant] = row.Rating
	}
	return nil
}

func (m *MemoryRepository) Stats(_ context.Context) ([]domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Stats, 0, len(m.ratings))
	for p, rating := range m.ratings {
		s := domain.Stats{Participant: p, Rating: rating}
		sum := 0
		for _, row := range m.plays[p] {
			s.Games++
			s.TotalPoints += row.Points
			if !row.Attempts.IsFailed() {
				s.Wins++
				sum += int(row.Attempts)
			}
		}
		if s.Wins > 0 {
			avg := round2(float64(sum) / float64(s.Wins))
			s.AvgAttempts = &avg
		}
		out = append(out, s)
	}
	sortStats(out)
	return out, nil
}

func (m *MemoryRepository) Reset(_ context.Context) error {
	m.mu.Lock()
	m.plays = make(map[string]map[string]domain.PlayRow)
	m.ratings = make(map[string]float64)
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) Close() error { return nil }

func (m *MemoryRepository) snapshotLocked(puzzleID string, participants []string) map[string]domain.Prior {
	out := make(map[string]domain.Prior, len(participants))
	for _, p := range participants {
		out[p] = domain.Prior{Rating: m.ratingLocked(p), Games: m.countLocked(p, puzzleID)}
	}
	return out
}

func (m *MemoryRepository) ratingLocked(participant string) float64 {
	if r, ok := m.ratings[strings.TrimSpace(participant)]; ok {
		return r
	}
	return domain.DefaultRating
}

func (m *MemoryRepository) countLocked(participant, excludePuzzle string) int {
	byPuzzle := m.plays[strings.TrimSpace(participant)]
	n := len(byPuzzle)
	if _, ok := byPuzzle[excludePuzzle]; ok {
		n--
	}
	return n
}
