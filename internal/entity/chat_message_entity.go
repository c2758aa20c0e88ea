package entity

import (
	"time"

	"github.com/google/uuid"
)

// RetrievedChunk records one retrieved context entry attached to an
// assistant message, for citation and debugging.
type RetrievedChunk struct {
	DocumentId    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	ChunkIndex    int       `json:"chunk_index"`
	Score         float64   `json:"score"`
	Content       string    `json:"content"`
}

type ChatMessage struct {
	Id               uuid.UUID
	Content          string
	Role             string
	ChatSessionId    uuid.UUID
	RephrasedQuery   *string
	RetrievedContext []RetrievedChunk
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	DeletedAt        *time.Time
	IsDeleted        bool
}
