// Package events contains the WebSocket message contracts pushed to
// dashboard consumers.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Message type strings. TypeDashboardUpdate carries a full AppState.
const (
	TypeDashboardUpdate = "dashboard:update"
	TypeConnect         = "connect"

	MessageTypeDashboardUpdate MessageType = TypeDashboardUpdate
	MessageTypeConnect         MessageType = TypeConnect
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// NewMessage builds a message stamped with the current time
func NewMessage(t MessageType, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{Type: t, Timestamp: time.Now().UTC()},
		Data:        data,
	}
}

// ConnectData is sent to a client right after it connects
type ConnectData struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	HasSnapshot bool   `json:"has_snapshot"`
}
