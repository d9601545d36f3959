package room

import (
	"context"
	"sync"
	"time"

	"github.com/shoplive/liveroom/internal/auction"
	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/realtime"
	"github.com/shoplive/liveroom/internal/repository"
	"github.com/shoplive/liveroom/pkg/log"
)

// Registry owns the live per-room auction controllers. Controllers are
// created when an auction room opens (or is found live at startup) and
// dropped when the room closes.
type Registry struct {
	sessions repository.SessionRepository
	wallets  repository.WalletRepository
	bus      *realtime.Bus

	mu          sync.Mutex
	controllers map[string]*auction.Controller
	cancels     map[string]context.CancelFunc
}

// NewRegistry creates an auction controller registry.
func NewRegistry(sessions repository.SessionRepository, wallets repository.WalletRepository, bus *realtime.Bus) *Registry {
	return &Registry{
		sessions:    sessions,
		wallets:     wallets,
		bus:         bus,
		controllers: make(map[string]*auction.Controller),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Start creates and runs a controller for an auction session. A second
// Start for the same room returns the existing controller.
func (r *Registry) Start(ctx context.Context, session *domain.Session) *auction.Controller {
	if !session.IsAuction || session.AuctionEndTime == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ctrl, ok := r.controllers[session.ID]; ok {
		return ctrl
	}

	ctrl := auction.NewController(auction.Config{
		RoomID:        session.ID,
		EndsAt:        *session.AuctionEndTime,
		StartingPrice: session.HighestBid,
	}, r.sessions, r.wallets, r.bus, nil)

	// The run loop outlives the caller's (often request-scoped) context.
	runCtx, cancel := context.WithCancel(context.Background())
	r.controllers[session.ID] = ctrl
	r.cancels[session.ID] = cancel
	go ctrl.Run(runCtx)

	log.Ctx(ctx).Info().
		Str(log.FieldRoomID, session.ID).
		Time("ends_at", *session.AuctionEndTime).
		Msg("auction controller started")
	return ctrl
}

// Get returns the controller for a room, or nil for non-auction rooms.
func (r *Registry) Get(roomID string) *auction.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controllers[roomID]
}

// Stop drops a room's controller. Idempotent.
func (r *Registry) Stop(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cancel, ok := r.cancels[roomID]; ok {
		cancel()
		delete(r.cancels, roomID)
	}
	delete(r.controllers, roomID)
}

// Resume restarts controllers for auction sessions already live in the
// store, e.g. after a process restart. Sessions whose deadline already
// passed still get a controller so the ended state is served.
func (r *Registry) Resume(ctx context.Context) error {
	const pageSize = 100
	for page := 1; ; page++ {
		sessions, _, err := r.sessions.List(ctx, page, pageSize, string(domain.SessionStatusLive))
		if err != nil {
			return err
		}
		for i := range sessions {
			r.Start(ctx, &sessions[i])
		}
		if len(sessions) < pageSize {
			return nil
		}
	}
}

// RemainingIn formats the time left in a room's auction, or reports
// false for rooms without one.
func (r *Registry) RemainingIn(roomID string) (time.Duration, bool) {
	ctrl := r.Get(roomID)
	if ctrl == nil {
		return 0, false
	}
	return ctrl.Remaining(), true
}
