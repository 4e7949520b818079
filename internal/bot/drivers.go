package bot

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/irisfast"
	"go.uber.org/zap"
)

const liveQueueSize = 64

// RunLive feeds WebSocket messages through h on one goroutine until ctx is
// done. A full queue holds the WS reader back instead of dropping messages.
func RunLive(ctx context.Context, ws irisfast.WSClient, h *Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	queue := make(chan *irisfast.Message, liveQueueSize)
	id := ws.OnMessage(func(m *irisfast.Message) {
		select {
		case queue <- m:
			return
		default:
		}
		logger.Warn("live_queue_full", zap.String("room", m.Room), zap.String("message_id", m.MessageID()))
		select {
		case queue <- m:
		case <-ctx.Done():
			logger.Error("live_message_dropped", zap.String("room", m.Room), zap.String("message_id", m.MessageID()))
		}
	})
	defer ws.RemoveMessageCallback(id)

	if err := ws.Connect(ctx); err != nil {
		logger.Warn("ws_initial_connect_failed", zap.Error(err))
	}
	logger.Info("live_started", zap.Bool("connected", ws.Connected()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-queue:
			if report, err := h.HandleMessage(ctx, m); err == nil && report != nil && len(report.Entries) > 0 {
				logger.Info("live_puzzle", zap.String("puzzle_id", report.PuzzleID), zap.String("results", report.Summary()))
			}
		}
	}
}

type ReplayStats struct {
	Lines    int
	Puzzles  int
	Rejected int
	Skipped  int
}

// Replay feeds a JSONL export of Iris messages, one per line, through h in
// file order. Malformed lines and rejected puzzles are counted, not fatal.
func Replay(ctx context.Context, r io.Reader, h *Handler, logger *zap.Logger) (ReplayStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var st ReplayStats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		st.Lines++
		var msg irisfast.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			st.Skipped++
			logger.Warn("replay_bad_line", zap.Int("line", st.Lines), zap.Error(err))
			continue
		}
		report, err := h.HandleMessage(ctx, &msg)
		switch {
		case err != nil:
			st.Rejected++
		case report != nil && len(report.Entries) > 0:
			st.Puzzles++
			logger.Info("replay_puzzle", zap.String("puzzle_id", report.PuzzleID), zap.String("results", report.Summary()))
		}
	}
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("read replay input: %w", err)
	}
	return st, nil
}
