package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id         uuid.UUID
	SessionKey string
	Title      string
	ClientIP   string
	UserAgent  string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
