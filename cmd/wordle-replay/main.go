package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/bot"
	appcfg "github.com/park285/Wordle-KakaoTalk-bot/internal/config"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/wordlebuilder"
	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "", "JSONL export of Iris messages, oldest first")
	reset := flag.Bool("reset", false, "wipe plays and ratings before replaying")
	flag.Parse()
	if *file == "" {
		log.Fatal("-file is required")
	}

	cfg, err := appcfg.LoadOffline()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := wordlebuilder.New(ctx, cfg, nil, logger)
	if err != nil {
		logger.Fatal("wordle_init_failed", zap.Error(err))
	}
	defer deps.Close()

	if *reset || cfg.ResetOnStart {
		if err := deps.Service.Reset(ctx); err != nil {
			logger.Fatal("reset_failed", zap.Error(err))
		}
	}

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal("replay_open_failed", zap.String("file", *file), zap.Error(err))
	}
	defer f.Close()

	handler := bot.NewHandler(bot.Config{Room: cfg.WordleRoom, StatsCommand: cfg.StatsCommand}, deps.Service, nil, deps.Names, logger)
	st, err := bot.Replay(ctx, f, handler, logger)
	if err != nil {
		logger.Error("replay_failed", zap.Error(err))
	}
	logger.Info("replay_done",
		zap.Int("lines", st.Lines),
		zap.Int("puzzles", st.Puzzles),
		zap.Int("rejected", st.Rejected),
		zap.Int("skipped", st.Skipped),
	)

	stats, err := deps.Service.Leaderboard(ctx)
	if err != nil {
		logger.Error("leaderboard_failed", zap.Error(err))
		return
	}
	for i, s := range stats {
		logger.Info("leaderboard_row",
			zap.Int("rank", i+1),
			zap.String("participant", s.Participant),
			zap.Float64("rating", s.Rating),
			zap.Int("points", s.TotalPoints),
		)
	}
}
