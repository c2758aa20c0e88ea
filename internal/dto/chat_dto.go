package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendChatRequest struct {
	SessionId string `json:"session_id" validate:"required,max=128"`
	Message   string `json:"message" validate:"required"`
}

type RetrievedContextDTO struct {
	DocumentId    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	ChunkIndex    int       `json:"chunk_index"`
	Score         float64   `json:"score"`
	Content       string    `json:"content"`
}

type SendChatResponse struct {
	SessionId        string                `json:"session_id"`
	MessageId        uuid.UUID             `json:"message_id"`
	Reply            string                `json:"reply"`
	RetrievedContext []RetrievedContextDTO `json:"retrieved_context,omitempty"`
}

type ChatHistoryMessageResponse struct {
	Id               uuid.UUID             `json:"id"`
	Role             string                `json:"role"`
	Content          string                `json:"content"`
	RetrievedContext []RetrievedContextDTO `json:"retrieved_context,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

type SuggestedQuestionsResponse struct {
	SessionId string   `json:"session_id"`
	Questions []string `json:"questions"`
}

// Stream event payloads. One of these rides in each server-push frame.

const (
	StreamEventChunk    = "chunk"
	StreamEventComplete = "complete"
	StreamEventError    = "error"
)

type StreamChunkEvent struct {
	Text string `json:"text"`
}

type StreamCompleteEvent struct {
	SessionId        string                `json:"session_id"`
	MessageId        uuid.UUID             `json:"message_id"`
	FullText         string                `json:"full_text"`
	RetrievedContext []RetrievedContextDTO `json:"retrieved_context,omitempty"`
}

type StreamErrorEvent struct {
	Message string `json:"message"`
}
