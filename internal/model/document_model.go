package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title       string         `gorm:"type:varchar(255);not null"`
	Description string         `gorm:"type:text"`
	Content     string         `gorm:"type:text;not null"`
	SourceType  string         `gorm:"type:varchar(32);default:'text'"`
	Size        int            `gorm:"default:0"` // content length in bytes
	ChunkCount  int            `gorm:"default:0"`
	UploadedBy  *uuid.UUID     `gorm:"type:uuid"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
