package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/adapter/leaderpresenter"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/bot"
	appcfg "github.com/park285/Wordle-KakaoTalk-bot/internal/config"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/irisfast"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/metrics"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/msgcat"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/wordlebuilder"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := appcfg.Load()
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

	rec := metrics.New()
	deps, err := wordlebuilder.New(ctx, cfg, rec, logger)
	if err != nil {
		logger.Fatal("wordle_init_failed", zap.Error(err))
	}
	defer deps.Close()

	if cfg.ResetOnStart {
		if err := deps.Service.Reset(ctx); err != nil {
			logger.Fatal("reset_failed", zap.Error(err))
		}
	}
	logLeaderboard(ctx, deps, logger)

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("msgcat_init_failed", zap.Error(err))
	}

	headers := irisfast.UserHeaders(cfg.XUserID, cfg.XUserEmail, cfg.XSessionID)
	client := irisfast.NewClient(cfg.IrisBaseURL, irisfast.WithHeaderProvider(headers))
	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 10, logger)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", state.String()))
	})

	egress := irisfast.NewEgress(cfg.EgressMode, cfg.EgressDryRun, client, ws, logger)
	presenter := leaderpresenter.NewPresenter(catalog, deps.Names, func(room, message string) error {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return egress.SendText(sctx, room, message)
	})
	handler := bot.NewHandler(bot.Config{Room: cfg.WordleRoom, StatsCommand: cfg.StatsCommand}, deps.Service, presenter, deps.Names, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.RunLive(gctx, ws, handler, logger) })
	g.Go(func() error { return rec.Serve(gctx, cfg.MetricsAddr, logger) })

	logger.Info("wordle_bot_started",
		zap.String("room", cfg.WordleRoom),
		zap.String("store", cfg.StoreBackend),
		zap.String("egress", cfg.EgressMode),
	)
	if err := g.Wait(); err != nil {
		logger.Error("wordle_bot_stopped", zap.Error(err))
	}

	cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = ws.Close(cctx)
}

func logLeaderboard(ctx context.Context, deps *wordlebuilder.Deps, logger *zap.Logger) {
	stats, err := deps.Service.Leaderboard(ctx)
	if err != nil {
		logger.Warn("leaderboard_failed", zap.Error(err))
		return
	}
	for i, s := range stats {
		fields := []zap.Field{
			zap.Int("rank", i+1),
			zap.String("participant", s.Participant),
			zap.Float64("rating", s.Rating),
			zap.Int("games", s.Games),
			zap.Int("wins", s.Wins),
			zap.Int("points", s.TotalPoints),
		}
		if s.AvgAttempts != nil {
			fields = append(fields, zap.Float64("avg_attempts", *s.AvgAttempts))
		}
		logger.Info("leaderboard_row", fields...)
	}
}
