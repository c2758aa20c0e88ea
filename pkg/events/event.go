package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_PROCESSED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Domain event constructors

func NewDocumentProcessed(documentId uuid.UUID, title string, chunkCount int) Event {
	return BaseEvent{
		Type: "DOCUMENT_PROCESSED",
		Data: map[string]interface{}{
			"document_id": documentId.String(),
			"title":       title,
			"chunk_count": chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentDeleted(documentId uuid.UUID) Event {
	return BaseEvent{
		Type: "DOCUMENT_DELETED",
		Data: map[string]interface{}{
			"document_id": documentId.String(),
		},
		OccurredAt: time.Now(),
	}
}

func NewChatMessageSent(sessionId uuid.UUID, role string, contextCount int) Event {
	return BaseEvent{
		Type: "CHAT_MESSAGE_SENT",
		Data: map[string]interface{}{
			"session_id":    sessionId.String(),
			"role":          role,
			"context_count": contextCount,
		},
		OccurredAt: time.Now(),
	}
}
