package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/pkg/log"
)

// GormChatRepository implements ChatRepository using GORM.
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a new GORM-based chat repository.
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

// Insert durably stores a chat event. The caller assigns the event ID
// before insert; it is the dedup key on the feed.
func (r *GormChatRepository) Insert(ctx context.Context, event *domain.ChatEvent) error {
	model := domain.ChatEventToModel(event)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, event.RoomID).Msg("failed to insert chat event")
		return err
	}
	event.CreatedAt = model.CreatedAt
	return nil
}

// ListRecent returns the latest chat events for a room in insertion
// order (oldest first).
func (r *GormChatRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error) {
	if limit < 1 {
		limit = 50
	}

	var models []domain.ChatEventModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list chat events")
		return nil, err
	}

	// Reverse into insertion order.
	events := make([]domain.ChatEvent, len(models))
	for i, model := range models {
		events[len(models)-1-i] = *model.ToDomain()
	}
	return events, nil
}
