package room

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shoplive/liveroom/internal/auction"
	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/media"
	"github.com/shoplive/liveroom/internal/presence"
	"github.com/shoplive/liveroom/internal/realtime"
	"github.com/shoplive/liveroom/internal/service"
	"github.com/shoplive/liveroom/pkg/log"
	"github.com/shoplive/liveroom/pkg/pubsub"
)

var (
	ErrEmptyChat      = errors.New("chat text is empty")
	ErrNotAuctionRoom = errors.New("room is not an auction")
	ErrClosed         = errors.New("room session closed")
)

// Outbound is an event leaving the orchestrator toward the client.
// Confirmed is set on a persisted chat echo the client published
// itself, so the UI can reconcile its optimistic copy instead of
// rendering a duplicate.
type Outbound struct {
	Event     *pubsub.Event `json:"event"`
	Confirmed bool          `json:"confirmed,omitempty"`
}

// Emit delivers outbound events to one client. Called serially from
// the subscription pump.
type Emit func(out Outbound)

// Deps are the room-scoped collaborators an Orchestrator composes.
type Deps struct {
	Bus      *realtime.Bus
	Presence *presence.Tracker
	Auction  *auction.Controller // nil for non-auction rooms
	Gifts    service.GiftService
	Commerce service.CommerceService
	Wallet   service.WalletService
	Media    *media.Manager // nil when the entry carries no media
}

// Orchestrator is one participant's entry into one room. It owns the
// bus subscription, routes UI intents to the domain services, fans bus
// events back out to the client, and tears everything down through one
// scoped Close. Nothing here is shared between entries: two viewers in
// the same room each hold their own Orchestrator.
type Orchestrator struct {
	roomID      string
	participant domain.Participant
	deps        Deps

	sub   *realtime.Subscription
	media *media.Session

	mu      sync.Mutex
	emit    Emit
	pending map[string]struct{}
	viewers int

	closeOnce sync.Once
	closed    chan struct{}
}

// Enter joins a participant to a room: subscribes to both bus channels
// and registers fan-out for every event kind. The caller wires the
// outbound sink with SetEmit before or after entering; events arriving
// with no sink are dropped for this entry only.
func Enter(ctx context.Context, roomID string, participant domain.Participant, deps Deps) (*Orchestrator, error) {
	sub, err := deps.Bus.Subscribe(ctx, roomID)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		roomID:      roomID,
		participant: participant,
		deps:        deps,
		sub:         sub,
		pending:     make(map[string]struct{}),
		closed:      make(chan struct{}),
	}

	for _, kind := range []domain.EventKind{
		domain.KindChat, domain.KindHeart, domain.KindBid, domain.KindGift, domain.KindViewerCount,
	} {
		sub.On(kind, o.forward)
	}

	deps.Presence.Touch(participant.ID)

	log.Ctx(ctx).Info().
		Str(log.FieldRoomID, roomID).
		Str(log.FieldUserID, participant.ID).
		Str("role", string(participant.Role)).
		Msg("participant entered room")
	return o, nil
}

// SetEmit installs the outbound sink for this entry.
func (o *Orchestrator) SetEmit(emit Emit) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emit = emit
}

// Participant returns the entry's participant identity.
func (o *Orchestrator) Participant() domain.Participant {
	return o.participant
}

// forward fans one bus event out to the client, reconciling persisted
// chat echoes of this entry's own sends by event ID.
func (o *Orchestrator) forward(event *pubsub.Event) {
	o.mu.Lock()
	emit := o.emit
	_, confirmed := o.pending[event.ID]
	if confirmed {
		delete(o.pending, event.ID)
	}
	o.mu.Unlock()

	if emit == nil {
		return
	}
	emit(Outbound{Event: event, Confirmed: confirmed})
}

// SendChat publishes a persisted chat line. The event ID is assigned
// here and remembered so the feed echo can be reconciled against the
// client's optimistic copy.
func (o *Orchestrator) SendChat(ctx context.Context, text string) (string, error) {
	if o.isClosed() {
		return "", ErrClosed
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyChat
	}

	chat := &domain.ChatEvent{
		ID:         realtime.NewEventID(),
		RoomID:     o.roomID,
		SenderID:   o.participant.ID,
		SenderName: o.participant.DisplayName,
		Text:       text,
		Type:       domain.ChatTypeText,
		IsHost:     o.participant.Role == domain.RoleHost,
	}

	o.mu.Lock()
	o.pending[chat.ID] = struct{}{}
	o.mu.Unlock()

	if err := o.deps.Bus.PublishChat(ctx, chat); err != nil {
		o.mu.Lock()
		delete(o.pending, chat.ID)
		o.mu.Unlock()
		return "", err
	}

	o.deps.Presence.Touch(o.participant.ID)
	return chat.ID, nil
}

// SendHeart publishes an ephemeral heart tap. Hearts are free and
// fire-and-forget.
func (o *Orchestrator) SendHeart(ctx context.Context) error {
	if o.isClosed() {
		return ErrClosed
	}
	o.deps.Presence.Touch(o.participant.ID)
	return o.deps.Bus.PublishEphemeral(ctx, domain.KindHeart, o.roomID, domain.HeartPayload{
		SenderID: o.participant.ID,
	})
}

// SendGift settles and announces a catalog gift.
func (o *Orchestrator) SendGift(ctx context.Context, giftID string) (*domain.GiftEvent, error) {
	if o.isClosed() {
		return nil, ErrClosed
	}
	o.deps.Presence.Touch(o.participant.ID)
	return o.deps.Gifts.SendGift(ctx, o.roomID, giftID, o.participant)
}

// PlaceBid routes a bid to the room's auction controller.
func (o *Orchestrator) PlaceBid(ctx context.Context, amount int64) error {
	if o.isClosed() {
		return ErrClosed
	}
	if o.deps.Auction == nil {
		return ErrNotAuctionRoom
	}
	o.deps.Presence.Touch(o.participant.ID)
	return o.deps.Auction.PlaceBid(ctx, amount, o.participant)
}

// AddToCart adds a product line for this participant without leaving
// the room.
func (o *Orchestrator) AddToCart(ctx context.Context, productID string, opts domain.ItemOptions) (*domain.CartItem, error) {
	if o.isClosed() {
		return nil, ErrClosed
	}
	return o.deps.Commerce.AddToCart(ctx, o.participant.ID, productID, opts)
}

// Checkout runs the in-room checkout for the given cart lines.
func (o *Orchestrator) Checkout(ctx context.Context, itemIDs []string, shippingAddress string) (*domain.Order, error) {
	if o.isClosed() {
		return nil, ErrClosed
	}
	return o.deps.Commerce.Checkout(ctx, o.participant.ID, itemIDs, shippingAddress)
}

// PublishViewerCount broadcasts the room's current viewer count. The
// hub calls this on membership changes; only the change is announced,
// so an unchanged count stays quiet.
func (o *Orchestrator) PublishViewerCount(ctx context.Context, count int) error {
	if o.isClosed() {
		return ErrClosed
	}

	o.mu.Lock()
	if count == o.viewers {
		o.mu.Unlock()
		return nil
	}
	o.viewers = count
	o.mu.Unlock()

	return o.deps.Bus.PublishEphemeral(ctx, domain.KindViewerCount, o.roomID, domain.ViewerCountPayload{
		Count: count,
	})
}

// ConnectMedia opens a media session for this entry. Hosts publish,
// viewers subscribe. The session is owned by the entry: Close tears it
// down with everything else, and a drop the local side did not ask for
// surfaces through onError as a *media.ConnectionError.
func (o *Orchestrator) ConnectMedia(ctx context.Context, signaler media.Signaler, sink media.RenderSink, onError func(error)) (*media.Session, error) {
	if o.isClosed() {
		return nil, ErrClosed
	}
	if o.deps.Media == nil {
		return nil, errors.New("no media manager configured")
	}

	session, err := o.deps.Media.Connect(ctx, signaler, o.participant.Role, o.participant.ID, sink, onError)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.media = session
	o.mu.Unlock()
	return session, nil
}

// AttachMedia associates an externally connected media session with
// this entry so Close tears it down with everything else.
func (o *Orchestrator) AttachMedia(session *media.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.media = session
}

// Close leaves the room: the bus subscription, presence registration,
// and any media session are all released. Safe to call from any exit
// path; only the first call does work.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.closed)
		o.sub.Close()
		o.deps.Presence.Forget(o.participant.ID)

		o.mu.Lock()
		m := o.media
		o.media = nil
		o.emit = nil
		o.pending = make(map[string]struct{})
		o.mu.Unlock()

		if m != nil {
			m.Disconnect()
		}

		log.L().Info().
			Str(log.FieldRoomID, o.roomID).
			Str(log.FieldUserID, o.participant.ID).
			Msg("participant left room")
	})
}

func (o *Orchestrator) isClosed() bool {
	select {
	case <-o.closed:
		return true
	default:
		return false
	}
}
