package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatSession struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionKey string         `gorm:"type:varchar(128);not null;uniqueIndex"` // Client-supplied identifier
	Title      string         `gorm:"type:text"`
	ClientIP   string         `gorm:"type:varchar(64)"`
	UserAgent  string         `gorm:"type:varchar(512)"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
