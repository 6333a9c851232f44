package repository

import (
	"fmt"

	"gorm.io/gorm"

	"deepchat/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append writes one turn to its session. The insert itself is atomic, so
// concurrent appends to the same session interleave instead of overwriting
// each other. Returns ErrSessionNotFound if the session is gone.
func (r *MessageRepository) Append(message *model.Message) error {
	var count int64
	if err := r.db.Model(&model.Session{}).Where("id = ?", message.SessionID).Count(&count).Error; err != nil {
		return fmt.Errorf("check session failed: %w", err)
	}
	if count == 0 {
		return ErrSessionNotFound
	}

	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("append message failed: %w", err)
	}

	if err := r.db.Model(&model.Session{}).
		Where("id = ?", message.SessionID).
		Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error; err != nil {
		return fmt.Errorf("bump session updated_at failed: %w", err)
	}
	return nil
}

// ListRecentBySessionID returns the newest limit turns of a session in
// ascending stored order. The window is taken from the tail so long sessions
// keep their immediate context.
func (r *MessageRepository) ListRecentBySessionID(sessionID uint, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var messages []model.Message
	if err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list recent messages failed: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepository) DeleteBySessionID(sessionID uint) error {
	if err := r.db.Where("session_id = ?", sessionID).Delete(&model.Message{}).Error; err != nil {
		return fmt.Errorf("delete session messages failed: %w", err)
	}
	return nil
}
