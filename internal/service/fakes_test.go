package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/events"
	"github.com/shoplive/liveroom/internal/repository"
)

type memWalletRepo struct {
	mu       sync.Mutex
	balances map[string]int64
}

func newMemWalletRepo(balances map[string]int64) *memWalletRepo {
	if balances == nil {
		balances = make(map[string]int64)
	}
	return &memWalletRepo{balances: balances}
}

func (m *memWalletRepo) Get(ctx context.Context, userID string) (*domain.WalletBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &domain.WalletBalance{UserID: userID, Balance: m.balances[userID]}, nil
}

func (m *memWalletRepo) Debit(ctx context.Context, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[userID] < amount {
		return repository.ErrInsufficientFunds
	}
	m.balances[userID] -= amount
	return nil
}

func (m *memWalletRepo) Credit(ctx context.Context, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amount
	return nil
}

func (m *memWalletRepo) balance(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

type memProductRepo struct {
	products map[string]domain.Product
}

func (m *memProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (m *memProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

type memCartRepo struct {
	mu    sync.Mutex
	next  int
	items map[string]domain.CartItem
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{items: make(map[string]domain.CartItem)}
}

func (m *memCartRepo) Add(ctx context.Context, item *domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	item.ID = fmt.Sprintf("cart-%d", m.next)
	m.items[item.ID] = *item
	return nil
}

func (m *memCartRepo) Get(ctx context.Context, itemID string) (*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, repository.ErrCartItemNotFound
	}
	return &item, nil
}

func (m *memCartRepo) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CartItem
	for _, item := range m.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memCartRepo) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	m.items[itemID] = item
	return nil
}

func (m *memCartRepo) Delete(ctx context.Context, itemIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range itemIDs {
		delete(m.items, id)
	}
	return nil
}

func (m *memCartRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memOrderRepo struct {
	mu      sync.Mutex
	next    int
	orders  []domain.Order
	failing bool
}

func (m *memOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return fmt.Errorf("order store unavailable")
	}
	m.next++
	order.ID = fmt.Sprintf("order-%d", m.next)
	m.orders = append(m.orders, *order)
	return nil
}

func (m *memOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *memOrderRepo) ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	next     int
	sessions map[string]domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]domain.Session)}
}

func (m *memSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	s.ID = fmt.Sprintf("room-%d", m.next)
	s.HighestBid = s.StartingPrice
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memSessionRepo) List(ctx context.Context, page, pageSize int, status string) ([]domain.Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Session
	for _, s := range m.sessions {
		if status == "" || string(s.Status) == status {
			all = append(all, s)
		}
	}
	return all, len(all), nil
}

func (m *memSessionRepo) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.Status = domain.SessionStatusClosed
	m.sessions[id] = s
	return nil
}

func (m *memSessionRepo) CountLiveByHost(ctx context.Context, hostID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.sessions {
		if s.HostID == hostID && s.Status == domain.SessionStatusLive {
			count++
		}
	}
	return count, nil
}

func (m *memSessionRepo) UpdateHighestBid(ctx context.Context, roomID string, amount int64, bidderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[roomID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if amount <= s.HighestBid {
		return repository.ErrBidTooLow
	}
	s.HighestBid = amount
	s.HighestBidder = bidderID
	m.sessions[roomID] = s
	return nil
}

type memChatRepo struct {
	mu    sync.Mutex
	chats []domain.ChatEvent
}

func (m *memChatRepo) Insert(ctx context.Context, e *domain.ChatEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, *e)
	return nil
}

func (m *memChatRepo) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChatEvent
	for _, c := range m.chats {
		if c.RoomID == roomID {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// recordingProducer captures settlement events for assertions.
type recordingProducer struct {
	mu     sync.Mutex
	orders []string
	gifts  []events.GiftSettled
}

func (r *recordingProducer) ProduceOrderCreated(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, order.ID)
	return nil
}

func (r *recordingProducer) ProduceGiftSettled(ctx context.Context, settled *events.GiftSettled) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gifts = append(r.gifts, *settled)
	return nil
}

func (r *recordingProducer) Close() error { return nil }
