// Package identity maps raw participant tokens found in announcements to
// canonical participant ids.
package identity

import (
	"github.com/park285/Wordle-KakaoTalk-bot/internal/announce"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
	"go.uber.org/zap"
)

type Resolver struct {
	table  *NameTable
	logger *zap.Logger
}

func NewResolver(table *NameTable, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == nil {
		table = NewNameTable(nil)
	}
	return &Resolver{table: table, logger: logger}
}

// Resolve returns the participant id of a token. Explicit references are
// authoritative; anything else goes through the name table.
func (r *Resolver) Resolve(token string) (string, bool) {
	if id, ok := announce.ReferenceID(token); ok {
		return id, true
	}
	return r.table.Lookup(token)
}

// Resolution is the outcome list of one announcement after identity mapping.
type Resolution struct {
	Outcomes   []domain.Outcome
	Unresolved []string
}

// ResolveClaims maps every claim to a participant. Unknown tokens are logged
// and dropped; the same (participant, attempts) pair is kept once.
func (r *Resolver) ResolveClaims(puzzleID string, claims []announce.Claim) Resolution {
	var res Resolution
	seen := make(map[domain.Outcome]struct{}, len(claims))
	for _, c := range claims {
		id, ok := r.Resolve(c.Token)
		if !ok {
			r.logger.Warn("token_unresolved",
				zap.String("puzzle_id", puzzleID),
				zap.String("token", c.Token),
				zap.String("attempts", c.Attempts.String()),
			)
			res.Unresolved = append(res.Unresolved, c.Token)
			continue
		}
		o := domain.Outcome{Participant: id, Attempts: c.Attempts}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		res.Outcomes = append(res.Outcomes, o)
	}
	return res
}
