// Package realtime implements the room-based broadcast channel: the
// server-side hub that relays debate messages between room members and
// the client-side connection that joins rooms and publishes turns. The
// channel is a relay only — at-most-once delivery, no persistence, no
// replay for late joiners.
package realtime

import (
	"encoding/json"
	"time"
)

// Wire event types.
const (
	EventJoinDebate    = "join-debate"
	EventDebateMessage = "debate-message"
)

// Envelope is the frame exchanged over the websocket. SessionID names
// the room; Data carries the event payload.
type Envelope struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func newEnvelope(eventType, sessionID string, data json.RawMessage) Envelope {
	return Envelope{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}
