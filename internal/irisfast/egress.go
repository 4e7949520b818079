package irisfast

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Egress sends text replies over HTTP or the WebSocket.
type Egress interface {
	SendText(ctx context.Context, room, message string) error
}

const (
	EgressHTTP = "http"
	EgressWS   = "ws"
	EgressAuto = "auto"
)

// NewEgress picks a transport. auto prefers the WebSocket while connected and
// falls back to HTTP once per message. dryrun logs instead of sending.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	var e Egress
	switch mode {
	case EgressWS:
		e = &wsEgress{ws: ws}
	case EgressAuto:
		e = &autoEgress{ws: &wsEgress{ws: ws}, http: &httpEgress{c: c}, logger: logger}
	default:
		e = &httpEgress{c: c}
	}
	if dryrun {
		return &dryRunEgress{logger: logger}
	}
	return e
}

type httpEgress struct{ c *Client }

func (h *httpEgress) SendText(ctx context.Context, room, message string) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.SendMessage(ctx, room, message)
}

type wsEgress struct{ ws *WebSocket }

func (w *wsEgress) SendText(ctx context.Context, room, message string) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	return w.ws.WriteJSON(ctx, &ReplyRequest{Type: "text", Room: room, Data: message})
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) SendText(ctx context.Context, room, message string) error {
	if a.ws.ws != nil && a.ws.ws.Connected() {
		err := a.ws.SendText(ctx, room, message)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("room", room), zap.Error(err))
	}
	return a.http.SendText(ctx, room, message)
}

type dryRunEgress struct{ logger *zap.Logger }

func (d *dryRunEgress) SendText(_ context.Context, room, message string) error {
	d.logger.Info("egress_dryrun", zap.String("room", room), zap.Int("bytes", len(message)))
	return nil
}
