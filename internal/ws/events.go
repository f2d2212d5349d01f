package ws

import (
	"github.com/stayledger/backend/internal/storage/models"
	"github.com/stayledger/backend/internal/sync"
	"github.com/stayledger/backend/pkg/logger"
)

// EventBroadcaster turns engine events into WebSocket broadcasts. It
// implements sync.ProgressSink, so the scheduler can forward every run's
// progress stream straight to connected dashboards.
type EventBroadcaster struct {
	hub *Hub
	log logger.Logger
}

// NewEventBroadcaster creates a broadcaster over the hub.
func NewEventBroadcaster(hub *Hub, log logger.Logger) *EventBroadcaster {
	return &EventBroadcaster{hub: hub, log: log}
}

// SyncProgress broadcasts one progress event from a sync run. Terminal
// events become sync.completed or sync.error; completed runs with
// conflicts additionally raise conflict.detected when the connection has
// alerts enabled.
func (b *EventBroadcaster) SyncProgress(conn models.SyncConnection, ev sync.ProgressEvent) {
	switch {
	case ev.Err != nil:
		b.send(NewMessage(TypeSyncError, SyncErrorPayload{
			PropertyID: conn.PropertyID,
			Platform:   conn.Platform.String(),
			Stage:      string(ev.Stage),
			Message:    ev.Err.Error(),
		}))

	case ev.Result != nil:
		result := ev.Result
		b.send(NewMessage(TypeSyncCompleted, SyncCompletedPayload{
			PropertyID:           result.PropertyID,
			Platform:             result.Platform.String(),
			EventsFound:          result.EventsFound,
			ImportedReservations: result.ImportedReservations,
			ImportedBlocks:       result.ImportedBlocks,
			ConflictsFound:       result.ConflictsFound,
			UpcomingBookings:     result.UpcomingBookings,
			SyncedAt:             result.SyncedAt,
		}))
		if result.ConflictsFound > 0 && conn.ConflictAlertsEnabled {
			b.send(NewMessage(TypeConflictDetected, ConflictDetectedPayload{
				PropertyID:     result.PropertyID,
				ConflictsFound: result.ConflictsFound,
			}))
		}

	default:
		b.send(NewMessage(TypeSyncProgress, SyncProgressPayload{
			PropertyID: conn.PropertyID,
			Platform:   conn.Platform.String(),
			Stage:      string(ev.Stage),
			Message:    ev.Message,
			Fraction:   ev.Fraction,
		}))
	}
}

// BroadcastNotification sends a freeform notification to all clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	b.send(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

func (b *EventBroadcaster) send(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.log.Error("encoding websocket message", "error", err)
		return
	}
	b.hub.Broadcast(data)
}
