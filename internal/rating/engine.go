// Package rating computes pairwise comparative (Elo-style) rating updates for
// a single puzzle. It performs no I/O.
package rating

import (
	"math"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
)

// Engine holds the update parameters. The zero value is not useful; start
// from Default.
type Engine struct {
	// BaseK is the learning rate of a participant with no prior games.
	BaseK float64
	// KStep is subtracted from BaseK for every prior game.
	KStep float64
	// MinK is the floor of the learning rate.
	MinK float64
	// Scale is the logistic spread: a Scale-point gap means 10:1 odds.
	Scale float64
}

var Default = Engine{BaseK: 35, KStep: 2, MinK: 10, Scale: 400}

// K returns the learning-rate factor for a participant with the given number
// of prior games.
func (e Engine) K(games int) float64 {
	if games < 0 {
		games = 0
	}
	return math.Max(e.BaseK-e.KStep*float64(games), e.MinK)
}

// Score is A's pairwise result against B: 1 for a win, 0 for a loss and 0.5
// for a tie. Two failures tie.
func Score(a, b domain.Attempts) float64 {
	switch {
	case a == b:
		return 0.5
	case a.IsFailed():
		return 0
	case b.IsFailed():
		return 1
	case a < b:
		return 1
	default:
		return 0
	}
}

// Expected is A's expected score against B.
func (e Engine) Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/e.Scale))
}

// Deltas returns the rating change of every participant. Each delta is the sum
// over all opponents, computed from pre-puzzle ratings only. Participants
// missing from prior start at domain.DefaultRating with no games.
func (e Engine) Deltas(prior map[string]domain.Prior, outcomes []domain.Outcome) map[string]float64 {
	before := make(map[string]float64, len(outcomes))
	k := make(map[string]float64, len(outcomes))
	for _, o := range outcomes {
		p, ok := prior[o.Participant]
		if !ok {
			p = domain.Prior{Rating: domain.DefaultRating}
		}
		before[o.Participant] = p.Rating
		k[o.Participant] = e.K(p.Games)
	}

	deltas := make(map[string]float64, len(outcomes))
	for _, a := range outcomes {
		sum := 0.0
		for _, b := range outcomes {
			if a.Participant == b.Participant {
				continue
			}
			expected := e.Expected(before[a.Participant], before[b.Participant])
			sum += k[a.Participant] * (Score(a.Attempts, b.Attempts) - expected)
		}
		deltas[a.Participant] = sum
	}
	return deltas
}

// Update returns the post-puzzle rating of every participant.
func (e Engine) Update(prior map[string]domain.Prior, outcomes []domain.Outcome) map[string]float64 {
	deltas := e.Deltas(prior, outcomes)
	out := make(map[string]float64, len(deltas))
	for _, o := range outcomes {
		r := domain.DefaultRating
		if p, ok := prior[o.Participant]; ok {
			r = p.Rating
		}
		out[o.Participant] = r + deltas[o.Participant]
	}
	return out
}
