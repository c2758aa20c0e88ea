package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	Content     string `json:"content" validate:"required"`
}

type UpdateDocumentRequest struct {
	Title       string `json:"title" validate:"omitempty,max=255"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	Content     string `json:"content" validate:"required"`
}

type ListDocumentsQuery struct {
	Search string `query:"q" validate:"omitempty,max=255"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type UploadDocumentResponse struct {
	Id         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type GetDocumentResponse struct {
	Id          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Content     string     `json:"content"`
	SourceType  string     `json:"source_type"`
	Size        int        `json:"size"`
	ChunkCount  int        `json:"chunk_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type ListDocumentsResponse struct {
	Id          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Size        int        `json:"size"`
	ChunkCount  int        `json:"chunk_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}
