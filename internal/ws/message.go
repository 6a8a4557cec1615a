package ws

import (
	"time"

	"github.com/airwarden/airwarden/internal/sentry"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageAlertEmitted MessageType = "alert.emitted"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// AlertData is the payload for alert.emitted messages.
type AlertData struct {
	Alert sentry.Alert `json:"alert"`
}
