// Package bot routes Iris chat messages to the scoring service and answers
// the leaderboard command. Live and replay drivers share one Handler.
package bot

import (
	"context"
	"strings"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/adapter/leaderpresenter"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/announce"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/identity"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/irisfast"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/service/wordle"
	"go.uber.org/zap"
)

type Config struct {
	Room         string
	StatsCommand string
}

type Handler struct {
	svc       *wordle.Service
	presenter *leaderpresenter.Presenter
	names     identity.DirectoryWriter
	room      string
	command   string
	logger    *zap.Logger
}

// NewHandler wires the handler. A nil presenter disables replies (replay);
// a nil names writer disables display-name learning.
func NewHandler(cfg Config, svc *wordle.Service, presenter *leaderpresenter.Presenter, names identity.DirectoryWriter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	command := strings.TrimSpace(cfg.StatsCommand)
	if command == "" {
		command = "!stats"
	}
	return &Handler{
		svc:       svc,
		presenter: presenter,
		names:     names,
		room:      strings.TrimSpace(cfg.Room),
		command:   command,
		logger:    logger,
	}
}

// HandleMessage processes one chat message. Errors are scoped to the message.
func (h *Handler) HandleMessage(ctx context.Context, msg *irisfast.Message) (*wordle.Report, error) {
	if msg == nil {
		return nil, nil
	}
	h.learnNames(ctx, msg)

	if strings.TrimSpace(msg.Msg) == h.command && strings.TrimSpace(msg.Room) == h.room {
		return nil, h.replyStats(ctx, msg.Room)
	}

	report, err := h.svc.HandleAnnouncement(ctx, ToAnnouncement(msg))
	if err != nil {
		h.logger.Error("puzzle_rejected", zap.String("room", msg.Room), zap.String("id", msg.MessageID()), zap.Error(err))
		return nil, err
	}
	return report, nil
}

func (h *Handler) replyStats(ctx context.Context, room string) error {
	if h.presenter == nil {
		return nil
	}
	stats, err := h.svc.Leaderboard(ctx)
	if err != nil {
		h.logger.Error("stats_failed", zap.Error(err))
		return h.presenter.Notice(room, "errors.stats_unavailable")
	}
	if err := h.presenter.Leaderboard(ctx, room, stats); err != nil {
		h.logger.Warn("stats_reply_failed", zap.String("room", room), zap.Error(err))
		return err
	}
	h.logger.Info("stats_replied", zap.String("room", room), zap.Int("rows", len(stats)))
	return nil
}

// learnNames records sender and mention display names for the leaderboard.
func (h *Handler) learnNames(ctx context.Context, msg *irisfast.Message) {
	if h.names == nil || msg.JSON == nil {
		return
	}
	if id := strings.TrimSpace(msg.JSON.UserID); id != "" {
		if name := msg.SenderName(); name != "" {
			if err := h.names.Remember(ctx, id, name); err != nil {
				h.logger.Debug("name_remember_failed", zap.String("id", id), zap.Error(err))
			}
		}
	}
	for _, m := range msg.JSON.Mentions {
		if strings.TrimSpace(m.UserID) == "" || strings.TrimSpace(m.Name) == "" {
			continue
		}
		if err := h.names.Remember(ctx, m.UserID, m.Name); err != nil {
			h.logger.Debug("name_remember_failed", zap.String("id", m.UserID), zap.Error(err))
		}
	}
}

// ToAnnouncement converts an Iris message to the extractor's input.
func ToAnnouncement(msg *irisfast.Message) announce.Announcement {
	a := announce.Announcement{
		Source: strings.TrimSpace(msg.Room),
		ID:     msg.MessageID(),
		Text:   msg.Msg,
	}
	if msg.JSON == nil {
		return a
	}
	for _, m := range msg.JSON.Mentions {
		a.Mentions = append(a.Mentions, announce.Mention{ID: m.UserID, Name: m.Name})
	}
	if p := msg.JSON.Panel; p != nil {
		panel := &announce.Panel{Footer: p.Footer, Description: p.Description}
		for _, f := range p.Fields {
			panel.Fields = append(panel.Fields, announce.Field{Name: f.Name, Value: f.Value})
		}
		a.Panel = panel
	}
	return a
}
