package irisfast

import "context"

// MessageCallback receives decoded inbound messages in arrival order.
type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

// WSClient is the part of WebSocket the live driver depends on. Callbacks
// registered before Connect see every message from the first dial on.
type WSClient interface {
	Connect(ctx context.Context) error
	Connected() bool
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
}
