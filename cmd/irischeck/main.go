package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/announce"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/bot"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/irisfast"
)

// irischeck probes Iris REST and WS, and prints what the extractor makes of
// every message seen during the observation window.
func main() {
	window := flag.Duration("window", 10*time.Second, "how long to observe the WS stream")
	flag.Parse()

	baseURL := strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	wsURL := strings.TrimSpace(os.Getenv("IRIS_WS_URL"))
	if baseURL == "" {
		log.Fatal("IRIS_BASE_URL is required")
	}
	headers := irisfast.UserHeaders(os.Getenv("X_USER_ID"), os.Getenv("X_USER_EMAIL"), os.Getenv("X_SESSION_ID"))

	client := irisfast.NewClient(baseURL, irisfast.WithHeaderProvider(headers), irisfast.WithTimeout(8*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	cfg, err := client.GetConfig(ctx)
	cancel()
	if err != nil {
		log.Printf("/config error: %v", err)
	} else {
		log.Printf("/config ok: port=%d polling=%d rate=%d endpoint=%s", cfg.Port, cfg.PollingSpeed, cfg.MessageRate, cfg.WebserverEndpoint)
	}

	if wsURL == "" {
		log.Println("IRIS_WS_URL not set; skipping WS check")
		return
	}

	extractor := announce.NewExtractor(announce.Options{
		Channel: os.Getenv("WORDLE_ROOM"),
		Header:  os.Getenv("WORDLE_HEADER"),
	})
	ws := irisfast.NewWebSocket(wsURL, 3, nil)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *irisfast.Message) {
		fmt.Printf("WS msg room=%s from=%s id=%s text=%q\n", msg.Room, msg.SenderName(), msg.MessageID(), msg.Msg)
		res, ok := extractor.Extract(bot.ToAnnouncement(msg))
		if !ok {
			return
		}
		for _, c := range res.Claims {
			fmt.Printf("  puzzle=%s token=%s attempts=%s\n", res.PuzzleID, c.Token, c.Attempts)
		}
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	time.Sleep(*window)
	_ = ws.Close(context.Background())
}
