package leaderpresenter

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/identity"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/msgcat"
)

const (
	nameColumnRunes = 18
	// boards longer than this are folded behind KakaoTalk's "see more"
	foldAfterRows = 10
)

// Presenter renders leaderboard stats as a chat table and delivers it.
type Presenter struct {
	catalog     *msgcat.Catalog
	names       identity.Directory
	sendMessage func(room, message string) error
}

func NewPresenter(catalog *msgcat.Catalog, names identity.Directory, sendMessage func(room, message string) error) *Presenter {
	return &Presenter{catalog: catalog, names: names, sendMessage: sendMessage}
}

type row struct {
	Name   string
	Rating int
	Points int
	Avg    string
}

// Format renders the whole table. Participants without a known display name
// are shown by id.
func (p *Presenter) Format(ctx context.Context, stats []domain.Stats) (string, error) {
	if len(stats) == 0 {
		return p.catalog.Render("leaderboard.empty", nil)
	}
	noAvg, err := p.catalog.Render("leaderboard.no_avg", nil)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(stats)+2)
	for _, key := range []string{"leaderboard.header", "leaderboard.separator"} {
		s, err := p.catalog.Render(key, nil)
		if err != nil {
			return "", err
		}
		lines = append(lines, s)
	}
	for _, s := range stats {
		r := row{
			Name:   p.displayName(ctx, s.Participant),
			Rating: int(math.Round(s.Rating)),
			Points: s.TotalPoints,
			Avg:    noAvg,
		}
		if s.AvgAttempts != nil {
			r.Avg = fmt.Sprintf("%.2f", *s.AvgAttempts)
		}
		line, err := p.catalog.Render("leaderboard.row", r)
		if err != nil {
			return "", fmt.Errorf("render row %s: %w", s.Participant, err)
		}
		lines = append(lines, line)
	}

	title, err := p.catalog.Render("leaderboard.title", nil)
	if err != nil {
		return "", err
	}
	body := strings.Join(lines, "\n")
	if len(stats) > foldAfterRows {
		instruction, err := p.catalog.Render("leaderboard.see_more", nil)
		if err != nil {
			return "", err
		}
		return title + "\n" + applySeeMore(body, instruction), nil
	}
	return title + "\n" + body, nil
}

// Leaderboard formats stats and sends them to room.
func (p *Presenter) Leaderboard(ctx context.Context, room string, stats []domain.Stats) error {
	if p == nil || p.sendMessage == nil {
		return nil
	}
	text, err := p.Format(ctx, stats)
	if err != nil {
		return err
	}
	return p.sendMessage(room, text)
}

// Notice renders a fixed catalog message and sends it to room.
func (p *Presenter) Notice(room, key string) error {
	if p == nil || p.sendMessage == nil {
		return nil
	}
	text, err := p.catalog.Render(key, nil)
	if err != nil {
		return err
	}
	return p.sendMessage(room, text)
}

func (p *Presenter) displayName(ctx context.Context, id string) string {
	name := id
	if p.names != nil {
		if n, ok := p.names.DisplayName(ctx, id); ok {
			name = n
		}
	}
	r := []rune(name)
	if len(r) > nameColumnRunes {
		name = string(r[:nameColumnRunes-1]) + "…"
	}
	return name
}
