package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/realtime"
	"github.com/shoplive/liveroom/internal/repository"
	"github.com/shoplive/liveroom/pkg/log"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotHost         = errors.New("only the host may close the room")
	ErrHostAlreadyLive = errors.New("host already has a live room")
	ErrInvalidTitle    = errors.New("room title is required")
	ErrInvalidAuction  = errors.New("auction requires a future end time and a positive starting price")
	ErrSessionNotLive  = errors.New("session is not live")
)

const (
	defaultListPageSize = 20
	maxListPageSize     = 100
)

// sessionServiceImpl implements SessionService.
type sessionServiceImpl struct {
	sessions repository.SessionRepository
	bus      *realtime.Bus
	now      func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(sessions repository.SessionRepository, bus *realtime.Bus) SessionService {
	return &sessionServiceImpl{sessions: sessions, bus: bus, now: time.Now}
}

// Open starts a live session for the host. One host holds at most one
// live room at a time.
func (s *sessionServiceImpl) Open(ctx context.Context, host domain.Participant, req *domain.OpenSessionRequest) (*domain.Session, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrInvalidTitle
	}
	if req.IsAuction {
		if req.AuctionEndTime == nil || !req.AuctionEndTime.After(s.now()) || req.StartingPrice <= 0 {
			return nil, ErrInvalidAuction
		}
	}

	live, err := s.sessions.CountLiveByHost(ctx, host.ID)
	if err != nil {
		return nil, err
	}
	if live > 0 {
		return nil, ErrHostAlreadyLive
	}

	session := &domain.Session{
		HostID:         host.ID,
		HostName:       host.DisplayName,
		Title:          req.Title,
		Status:         domain.SessionStatusLive,
		IsAuction:      req.IsAuction,
		AuctionEndTime: req.AuctionEndTime,
		StartingPrice:  req.StartingPrice,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str(log.FieldRoomID, session.ID).
		Str(log.FieldUserID, host.ID).
		Bool("is_auction", session.IsAuction).
		Msg("session opened")
	return session, nil
}

// Get returns the session by room ID.
func (s *sessionServiceImpl) Get(ctx context.Context, roomID string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// List returns a page of sessions, optionally filtered by status.
func (s *sessionServiceImpl) List(ctx context.Context, page, pageSize int, status string) (*domain.ListSessionsResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultListPageSize
	}
	if pageSize > maxListPageSize {
		pageSize = maxListPageSize
	}

	sessions, total, err := s.sessions.List(ctx, page, pageSize, status)
	if err != nil {
		return nil, err
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	return &domain.ListSessionsResponse{
		Sessions:   sessions,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Close ends a live session. Only the host may close it, and closing a
// closed room reports not-live rather than succeeding twice.
func (s *sessionServiceImpl) Close(ctx context.Context, hostID, roomID string) error {
	session, err := s.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if session.HostID != hostID {
		return ErrNotHost
	}
	if session.Status != domain.SessionStatusLive {
		return ErrSessionNotLive
	}

	if err := s.sessions.Close(ctx, roomID); err != nil {
		return err
	}

	// Late viewers replaying chat should see that the stream ended.
	end := &domain.ChatEvent{
		RoomID:     roomID,
		SenderID:   hostID,
		SenderName: session.HostName,
		Text:       "The stream has ended",
		Type:       domain.ChatTypeSystem,
		IsHost:     true,
	}
	if err := s.bus.PublishChat(ctx, end); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to announce session close")
	}

	log.Ctx(ctx).Info().Str(log.FieldRoomID, roomID).Msg("session closed")
	return nil
}
