package entity

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id          uuid.UUID
	Title       string
	Description string
	Content     string
	SourceType  string
	Size        int
	ChunkCount  int
	UploadedBy  *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}
