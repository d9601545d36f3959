package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/events"
	"github.com/shoplive/liveroom/internal/realtime"
	"github.com/shoplive/liveroom/pkg/log"
)

// ErrGiftNotFound is returned for a gift ID outside the catalog.
var ErrGiftNotFound = errors.New("gift not found")

// giftLogCap bounds the per-room rolling gift log kept for host display.
const giftLogCap = 50

// giftServiceImpl implements GiftService. Gift sends debit the wallet
// and fan out on the broadcast channel; nothing about a gift is
// durable except the settlement event handed to the producer.
type giftServiceImpl struct {
	wallet   WalletService
	bus      *realtime.Bus
	producer events.Producer

	mu   sync.Mutex
	logs map[string][]domain.GiftEvent
	now  func() time.Time
}

// NewGiftService creates a new gift service.
func NewGiftService(wallet WalletService, bus *realtime.Bus, producer events.Producer) GiftService {
	return &giftServiceImpl{
		wallet:   wallet,
		bus:      bus,
		producer: producer,
		logs:     make(map[string][]domain.GiftEvent),
		now:      time.Now,
	}
}

// Catalog returns the static gift catalog.
func (s *giftServiceImpl) Catalog() []domain.Gift {
	out := make([]domain.Gift, len(domain.GiftCatalog))
	copy(out, domain.GiftCatalog)
	return out
}

// SendGift debits the sender for the gift price, appends to the room's
// rolling log, and announces the gift to the room. The debit is the
// gate: a failed debit means no gift happened.
func (s *giftServiceImpl) SendGift(ctx context.Context, roomID, giftID string, sender domain.Participant) (*domain.GiftEvent, error) {
	gift, ok := domain.GiftByID(giftID)
	if !ok {
		return nil, ErrGiftNotFound
	}

	if err := s.wallet.Debit(ctx, sender.ID, gift.Price); err != nil {
		return nil, err
	}

	sent := domain.GiftEvent{
		GiftID:     gift.ID,
		Name:       gift.Name,
		UnitPrice:  gift.Price,
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		SentAt:     s.now(),
	}
	s.appendLog(roomID, sent)

	if err := s.bus.PublishEphemeral(ctx, domain.KindGift, roomID, domain.GiftPayload{
		GiftID:     gift.ID,
		UnitPrice:  gift.Price,
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
	}); err != nil {
		// The debit already settled; an undelivered announcement does
		// not unsettle it.
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to announce gift")
	}

	if err := s.producer.ProduceGiftSettled(ctx, &events.GiftSettled{
		RoomID:    roomID,
		GiftID:    gift.ID,
		SenderID:  sender.ID,
		UnitPrice: gift.Price,
		SettledAt: sent.SentAt,
	}); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to publish gift-settled event")
	}

	return &sent, nil
}

// RecentGifts returns the room's rolling gift log, oldest first.
func (s *giftServiceImpl) RecentGifts(roomID string) []domain.GiftEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.logs[roomID]
	out := make([]domain.GiftEvent, len(entries))
	copy(out, entries)
	return out
}

func (s *giftServiceImpl) appendLog(roomID string, sent domain.GiftEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.logs[roomID], sent)
	if len(entries) > giftLogCap {
		entries = entries[len(entries)-giftLogCap:]
	}
	s.logs[roomID] = entries
}
