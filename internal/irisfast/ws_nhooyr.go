package irisfast

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var ErrNotConnected = errors.New("websocket not connected")

var _ WSClient = (*WebSocket)(nil)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// WebSocket is the inbound Iris event stream. It reconnects with backoff
// until Close is called or the attempt budget runs out.
type WebSocket struct {
	wsURL   string
	headers HeaderProvider
	logger  *zap.Logger

	mu    sync.RWMutex
	conn  *websocket.Conn
	state WebSocketState
	// gen increments per connection so stale loops do not tear down a newer one
	gen int

	writeMu sync.Mutex

	cbM      sync.RWMutex
	nextCbID int
	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry

	maxReconnectAttempts int
	pingInterval         time.Duration

	rootCtx    context.Context
	rootCancel context.CancelFunc
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, logger *zap.Logger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocket{
		wsURL:                wsURL,
		logger:               logger,
		state:                WSStateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

// SetHeaderProvider injects headers into every handshake.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) { ws.headers = h }

func (ws *WebSocket) State() WebSocketState {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.state
}

func (ws *WebSocket) Connected() bool { return ws.State() == WSStateConnected }

// Connect dials once. On failure the reconnect loop takes over and the dial
// error is returned.
func (ws *WebSocket) Connect(ctx context.Context) error {
	switch ws.State() {
	case WSStateConnected, WSStateConnecting, WSStateReconnecting:
		return nil
	}
	ws.setState(WSStateConnecting)
	if err := ws.dial(ctx); err != nil {
		ws.logger.Warn("ws_connect_failed", zap.Error(err))
		ws.setState(WSStateFailed)
		ws.scheduleReconnect()
		return err
	}
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20)

	ws.mu.Lock()
	ws.conn = conn
	ws.gen++
	gen := ws.gen
	ws.mu.Unlock()
	ws.setState(WSStateConnected)

	ws.wg.Add(2)
	go ws.listen(conn, gen)
	go ws.pingLoop(conn, gen)
	return nil
}

func (ws *WebSocket) listen(conn *websocket.Conn, gen int) {
	defer ws.wg.Done()
	for {
		var msg Message
		if err := wsjson.Read(ws.rootCtx, conn, &msg); err != nil {
			ws.drop(gen, "read", err)
			return
		}
		ws.cbM.RLock()
		callbacks := append([]callbackEntry(nil), ws.msgCbs...)
		ws.cbM.RUnlock()
		for _, entry := range callbacks {
			entry.callback(&msg)
		}
	}
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn, gen int) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.rootCtx.Done():
			return
		case <-t.C:
		}
		ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
		err := conn.Ping(ctx)
		cancel()
		if err == nil {
			failures = 0
			continue
		}
		failures++
		if failures >= 2 {
			ws.drop(gen, "ping", err)
			return
		}
	}
}

// drop closes connection gen and starts reconnecting, unless a newer
// connection already replaced it or the socket is closing.
func (ws *WebSocket) drop(gen int, reason string, cause error) {
	if ws.rootCtx.Err() != nil {
		return
	}
	ws.mu.Lock()
	if ws.gen != gen || ws.conn == nil {
		ws.mu.Unlock()
		return
	}
	conn := ws.conn
	ws.conn = nil
	ws.mu.Unlock()

	_ = conn.Close(websocket.StatusGoingAway, reason)
	ws.logger.Warn("ws_disconnected", zap.String("reason", reason), zap.Error(cause))
	ws.setState(WSStateDisconnected)
	ws.scheduleReconnect()
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || ws.rootCtx.Err() != nil {
		return
	}
	ws.setState(WSStateReconnecting)
	go func() {
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			if err := sleepCtx(ws.rootCtx, backoffDuration(attempt)); err != nil {
				return
			}
			if err := ws.dial(ws.rootCtx); err != nil {
				ws.logger.Debug("ws_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			ws.logger.Info("ws_reconnected", zap.Int("attempt", attempt))
			return
		}
		ws.setState(WSStateFailed)
	}()
}

// WriteJSON sends one frame. Writes are serialized.
func (ws *WebSocket) WriteJSON(ctx context.Context, v any) error {
	ws.mu.RLock()
	conn, state := ws.conn, ws.state
	ws.mu.RUnlock()
	if conn == nil || state != WSStateConnected {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	return wsjson.Write(ctx, conn, v)
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	if cb != nil {
		ws.msgCbs = append(ws.msgCbs, callbackEntry{id: ws.nextCbID, callback: cb})
	}
	return ws.nextCbID
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.msgCbs {
		if cb.id == id {
			ws.msgCbs = append(ws.msgCbs[:i], ws.msgCbs[i+1:]...)
			return
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	if cb != nil {
		ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: ws.nextCbID, callback: cb})
	}
	return ws.nextCbID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			return
		}
	}
}

func (ws *WebSocket) setState(state WebSocketState) {
	ws.mu.Lock()
	changed := ws.state != state
	ws.state = state
	ws.mu.Unlock()
	if !changed {
		return
	}

	ws.cbM.RLock()
	callbacks := append([]stateCallbackEntry(nil), ws.stateCbs...)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		entry.callback(state)
	}
}

// Close stops reconnecting, closes the connection and waits for the read and
// ping loops to exit.
func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() {
		ws.rootCancel()
		ws.mu.Lock()
		conn := ws.conn
		ws.conn = nil
		ws.mu.Unlock()
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "close")
		}
		ws.setState(WSStateDisconnected)
	})

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headers == nil {
		return hdr
	}
	for k, v := range ws.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
