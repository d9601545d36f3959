package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/pkg/log"
)

// GormSessionRepository implements SessionRepository using GORM.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GORM-based session repository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Create creates a new live session.
func (r *GormSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	l := log.Ctx(ctx)

	session.ID = uuid.New().String()
	session.Status = domain.SessionStatusLive
	session.HighestBid = session.StartingPrice

	model := domain.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Msg("failed to create session in db")
		return err
	}

	session.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldRoomID, session.ID).Msg("session created in db")
	return nil
}

// GetByID retrieves a session by ID.
func (r *GormSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var model domain.SessionModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to get session by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// List retrieves sessions with pagination.
func (r *GormSessionRepository) List(ctx context.Context, page, pageSize int, status string) ([]domain.Session, int, error) {
	l := log.Ctx(ctx)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := r.db.WithContext(ctx).Model(&domain.SessionModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Msg("failed to count sessions")
		return nil, 0, err
	}

	var models []domain.SessionModel
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list sessions from db")
		return nil, 0, err
	}

	sessions := make([]domain.Session, len(models))
	for i, model := range models {
		sessions[i] = *model.ToDomain()
	}
	return sessions, int(total), nil
}

// Close marks a live session closed.
func (r *GormSessionRepository) Close(ctx context.Context, id string) error {
	l := log.Ctx(ctx)

	now := time.Now()
	result := r.db.WithContext(ctx).Model(&domain.SessionModel{}).
		Where("id = ? AND status = ?", id, string(domain.SessionStatusLive)).
		Updates(map[string]interface{}{
			"status":    string(domain.SessionStatusClosed),
			"closed_at": now,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to close session in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	l.Debug().Str(log.FieldRoomID, id).Msg("session closed in db")
	return nil
}

// CountLiveByHost counts live sessions owned by a host.
func (r *GormSessionRepository) CountLiveByHost(ctx context.Context, hostID string) (int, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.SessionModel{}).
		Where("host_id = ? AND status = ?", hostID, string(domain.SessionStatusLive)).
		Count(&count)
	if result.Error != nil {
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldUserID, hostID).Msg("failed to count live sessions")
	}
	return int(count), result.Error
}

// UpdateHighestBid conditionally records a new highest bid. The WHERE
// clause re-checks the projection so that of two racing bids only the
// strictly greater one lands.
func (r *GormSessionRepository) UpdateHighestBid(ctx context.Context, roomID string, amount int64, bidderID string) error {
	result := r.db.WithContext(ctx).Model(&domain.SessionModel{}).
		Where("id = ? AND status = ? AND highest_bid < ?", roomID, string(domain.SessionStatusLive), amount).
		Updates(map[string]interface{}{
			"highest_bid":    amount,
			"highest_bidder": bidderID,
		})
	if result.Error != nil {
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to update highest bid")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBidTooLow
	}
	return nil
}
