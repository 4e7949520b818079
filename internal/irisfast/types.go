package irisfast

import "strings"

// Message is one inbound chat event pushed by Iris over the WebSocket.
type Message struct {
	Msg    string       `json:"msg"`
	Room   string       `json:"room"`
	Sender *string      `json:"sender,omitempty"`
	JSON   *MessageJSON `json:"json,omitempty"`
}

// MessageJSON carries the raw chat log fields Iris forwards with a message.
type MessageJSON struct {
	ID       string    `json:"id,omitempty"`
	// ChatID is the room's numeric id.
	ChatID   string    `json:"chat_id,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	Mentions []Mention `json:"mentions,omitempty"`
	Panel    *Panel    `json:"panel,omitempty"`
}

type Mention struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

// Panel is a structured card attachment (title, body, labeled fields, footer).
type Panel struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Fields      []PanelField `json:"fields,omitempty"`
	Footer      string       `json:"footer,omitempty"`
}

type PanelField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessageID returns the chat log id, or "" when Iris did not forward one.
func (m *Message) MessageID() string {
	if m == nil || m.JSON == nil {
		return ""
	}
	return strings.TrimSpace(m.JSON.ID)
}

// SenderName returns the display name of the sender, or "".
func (m *Message) SenderName() string {
	if m == nil || m.Sender == nil {
		return ""
	}
	return strings.TrimSpace(*m.Sender)
}

type WebSocketState int

const (
	WSStateDisconnected WebSocketState = iota
	WSStateConnecting
	WSStateConnected
	WSStateReconnecting
	WSStateFailed
)

func (s WebSocketState) String() string {
	switch s {
	case WSStateDisconnected:
		return "disconnected"
	case WSStateConnecting:
		return "connecting"
	case WSStateConnected:
		return "connected"
	case WSStateReconnecting:
		return "reconnecting"
	case WSStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type ReplyRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data string `json:"data"`
}

// Config is the subset of the Iris /config response the bot reports on.
type Config struct {
	Port              int    `json:"port"`
	PollingSpeed      int    `json:"polling_speed"`
	MessageRate       int    `json:"message_rate"`
	WebserverEndpoint string `json:"web_server_endpoint"`
	BotName           string `json:"bot_name,omitempty"`
}

// UserHeaders builds the X-User-* handshake and request headers.
func UserHeaders(userID, email, sessionID string) HeaderProvider {
	return func() map[string]string {
		m := make(map[string]string, 3)
		if userID != "" {
			m["X-User-Id"] = userID
		}
		if email != "" {
			m["X-User-Email"] = email
		}
		if sessionID != "" {
			m["X-Session-Id"] = sessionID
		}
		return m
	}
}
