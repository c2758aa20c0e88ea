package mapper

import (
	"encoding/json"
	"time"

	"portfolio-ai-be/internal/entity"
	"portfolio-ai-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:         s.Id,
		SessionKey: s.SessionKey,
		Title:      s.Title,
		ClientIP:   s.ClientIP,
		UserAgent:  s.UserAgent,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
		IsDeleted:  s.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:         s.Id,
		SessionKey: s.SessionKey,
		Title:      s.Title,
		ClientIP:   s.ClientIP,
		UserAgent:  s.UserAgent,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var deletedAt *time.Time
	if msg.DeletedAt.Valid {
		t := msg.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !msg.UpdatedAt.IsZero() {
		t := msg.UpdatedAt
		updatedAt = &t
	}

	var retrieved []entity.RetrievedChunk
	if len(msg.RetrievedContext) > 0 {
		// Malformed rows degrade to no context rather than failing the read.
		_ = json.Unmarshal(msg.RetrievedContext, &retrieved)
	}

	return &entity.ChatMessage{
		Id:               msg.Id,
		Content:          msg.Content,
		Role:             msg.Role,
		ChatSessionId:    msg.ChatSessionId,
		RephrasedQuery:   msg.RephrasedQuery,
		RetrievedContext: retrieved,
		CreatedAt:        msg.CreatedAt,
		UpdatedAt:        updatedAt,
		DeletedAt:        deletedAt,
		IsDeleted:        msg.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if msg.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *msg.DeletedAt, Valid: true}
	} else if msg.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	var retrieved datatypes.JSON
	if len(msg.RetrievedContext) > 0 {
		if raw, err := json.Marshal(msg.RetrievedContext); err == nil {
			retrieved = datatypes.JSON(raw)
		}
	}

	return &model.ChatMessage{
		Id:               msg.Id,
		Content:          msg.Content,
		Role:             msg.Role,
		ChatSessionId:    msg.ChatSessionId,
		RephrasedQuery:   msg.RephrasedQuery,
		RetrievedContext: retrieved,
		CreatedAt:        msg.CreatedAt,
		UpdatedAt:        updatedAt,
		DeletedAt:        deletedAt,
	}
}

func (m *ChatMapper) ChatMessagesToEntities(messages []*model.ChatMessage) []*entity.ChatMessage {
	entities := make([]*entity.ChatMessage, len(messages))
	for i, msg := range messages {
		entities[i] = m.ChatMessageToEntity(msg)
	}
	return entities
}
