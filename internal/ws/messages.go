package ws

import (
	"encoding/json"
	"time"

	"github.com/stayledger/backend/internal/storage/models"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> client event types.
	TypeSyncProgress     MessageType = "sync.progress"
	TypeSyncCompleted    MessageType = "sync.completed"
	TypeSyncError        MessageType = "sync.error"
	TypeConflictDetected MessageType = "conflict.detected"
	TypeNotification     MessageType = "notification"
)

// Message is the WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncProgressPayload is the payload for sync.progress events.
type SyncProgressPayload struct {
	PropertyID string  `json:"property_id"`
	Platform   string  `json:"platform"`
	Stage      string  `json:"stage"`
	Message    string  `json:"message"`
	Fraction   float64 `json:"fraction"`
}

// SyncCompletedPayload is the payload for sync.completed events.
type SyncCompletedPayload struct {
	PropertyID           string           `json:"property_id"`
	Platform             string           `json:"platform"`
	EventsFound          int              `json:"events_found"`
	ImportedReservations int              `json:"imported_reservations"`
	ImportedBlocks       int              `json:"imported_blocks"`
	ConflictsFound       int              `json:"conflicts_found"`
	UpcomingBookings     []models.Booking `json:"upcoming_bookings"`
	SyncedAt             time.Time        `json:"synced_at"`
}

// SyncErrorPayload is the payload for sync.error events.
type SyncErrorPayload struct {
	PropertyID string `json:"property_id"`
	Platform   string `json:"platform"`
	Stage      string `json:"stage"`
	Message    string `json:"message"`
}

// ConflictDetectedPayload is the payload for conflict.detected events.
type ConflictDetectedPayload struct {
	PropertyID     string `json:"property_id"`
	ConflictsFound int    `json:"conflicts_found"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}
