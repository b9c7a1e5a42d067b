package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventConnected     = "connected"
	EventTurnCompleted = "turn_completed"
	EventDisconnected  = "disconnected"
)

// SessionEvent describes connection activity without any message text.
type SessionEvent struct {
	Type          string    `json:"type"`
	ConnectionID  uuid.UUID `json:"connection_id"`
	HistoryLength int       `json:"history_length,omitempty"`
	QueryLength   int       `json:"query_length,omitempty"`
	Fragments     int       `json:"fragments,omitempty"`
	ErrorKind     ErrorKind `json:"error_kind,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
