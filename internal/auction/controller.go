package auction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/realtime"
	"github.com/shoplive/liveroom/internal/repository"
	"github.com/shoplive/liveroom/pkg/log"
)

var (
	ErrNotOpen           = errors.New("auction is not open")
	ErrBidTooLow         = errors.New("bid must exceed the current highest bid")
	ErrInsufficientFunds = errors.New("wallet balance below bid amount")
)

// State is the auction lifecycle.
type State string

const (
	StateScheduled State = "scheduled"
	StateOpen      State = "open"
	StateEnded     State = "ended"
)

// BidStep is the fixed increment for suggested bids.
const BidStep = 10

// tickInterval is how often the deadline is re-evaluated.
const tickInterval = time.Second

// Controller runs one room's bidding protocol against a hard deadline.
//
// Remaining time is always derived from the fixed end timestamp, never
// accumulated by repeated subtraction, so the display cannot drift.
// The deadline check is idempotent: re-evaluating "is it ended" never
// reopens an ended auction.
type Controller struct {
	roomID  string
	opensAt time.Time
	endsAt  time.Time

	sessions repository.SessionRepository
	wallets  repository.WalletRepository
	bus      *realtime.Bus
	now      func() time.Time

	mu         sync.Mutex
	state      State
	highest    int64
	highestBy  string
	onEnded    func(winnerID string, amount int64)
	endedFired bool
}

// Config describes one auction.
type Config struct {
	RoomID        string
	OpensAt       time.Time // zero means open immediately
	EndsAt        time.Time
	StartingPrice int64
}

// NewController creates an auction controller. Clock overrides are for
// tests; pass nil for real time.
func NewController(cfg Config, sessions repository.SessionRepository, wallets repository.WalletRepository, bus *realtime.Bus, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		roomID:   cfg.RoomID,
		opensAt:  cfg.OpensAt,
		endsAt:   cfg.EndsAt,
		sessions: sessions,
		wallets:  wallets,
		bus:      bus,
		now:      now,
		state:    StateScheduled,
		highest:  cfg.StartingPrice,
	}
	c.evaluate()
	return c
}

// OnEnded registers a callback fired once when the deadline passes.
func (c *Controller) OnEnded(fn func(winnerID string, amount int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnded = fn
}

// State returns the current lifecycle state, re-deriving it from the
// clock first.
func (c *Controller) State() State {
	c.evaluate()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Highest returns the current highest bid and bidder.
func (c *Controller) Highest() (int64, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highest, c.highestBy
}

// Remaining returns the time left, derived from the end timestamp.
// Never negative.
func (c *Controller) Remaining() time.Duration {
	d := c.endsAt.Sub(c.now())
	if d < 0 {
		return 0
	}
	return d
}

// FormatRemaining renders the remaining time as minutes:seconds with
// zero-padded seconds, e.g. "4:07".
func (c *Controller) FormatRemaining() string {
	return FormatDuration(c.Remaining())
}

// FormatDuration renders a duration as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// PlaceBid validates and records a bid. The bid is a non-binding
// reservation: the wallet is checked for sufficiency but nothing is
// debited until final settlement.
func (c *Controller) PlaceBid(ctx context.Context, amount int64, bidder domain.Participant) error {
	c.evaluate()

	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if amount <= c.highest {
		c.mu.Unlock()
		return ErrBidTooLow
	}
	c.mu.Unlock()

	wallet, err := c.wallets.Get(ctx, bidder.ID)
	if err != nil {
		return err
	}
	if wallet.Balance < amount {
		return ErrInsufficientFunds
	}

	// The store re-checks the projection, so a racing higher bid wins
	// and this one comes back ErrBidTooLow.
	if err := c.sessions.UpdateHighestBid(ctx, c.roomID, amount, bidder.ID); err != nil {
		if errors.Is(err, repository.ErrBidTooLow) {
			return ErrBidTooLow
		}
		return err
	}

	c.mu.Lock()
	if amount > c.highest {
		c.highest = amount
		c.highestBy = bidder.ID
	}
	c.mu.Unlock()

	placedAt := c.now()
	if err := c.bus.PublishEphemeral(ctx, domain.KindBid, c.roomID, domain.BidPayload{
		Amount:     amount,
		BidderID:   bidder.ID,
		BidderName: bidder.DisplayName,
		PlacedAt:   placedAt,
	}); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, c.roomID).Msg("failed to broadcast bid")
	}

	// Synthetic system chat line keeps the bid visible in the chat
	// stream.
	announcement := &domain.ChatEvent{
		RoomID:     c.roomID,
		SenderID:   bidder.ID,
		SenderName: bidder.DisplayName,
		Text:       fmt.Sprintf("%s placed a bid of %d", bidder.DisplayName, amount),
		Type:       domain.ChatTypeSystem,
	}
	if err := c.bus.PublishChat(ctx, announcement); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, c.roomID).Msg("failed to announce bid in chat")
	}

	log.Ctx(ctx).Info().
		Str(log.FieldRoomID, c.roomID).
		Str(log.FieldUserID, bidder.ID).
		Int64(log.FieldAmount, amount).
		Msg("bid accepted")
	return nil
}

// SuggestHigher returns the current suggestion raised by one step.
func (c *Controller) SuggestHigher(current int64) int64 {
	return current + BidStep
}

// SuggestLower returns the current suggestion lowered by one step, but
// never at or below the current highest bid.
func (c *Controller) SuggestLower(current int64) int64 {
	c.mu.Lock()
	highest := c.highest
	c.mu.Unlock()

	suggested := current - BidStep
	if suggested <= highest {
		return highest + BidStep
	}
	return suggested
}

// Run re-evaluates the deadline on a fixed tick until the auction ends
// or the context is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.evaluate()
			c.mu.Lock()
			ended := c.state == StateEnded
			c.mu.Unlock()
			if ended {
				return
			}
		}
	}
}

// evaluate re-derives the state from the clock. Scheduled moves to
// Open once opensAt passes; Open moves to Ended once the deadline
// passes. Ended is terminal.
func (c *Controller) evaluate() {
	now := c.now()

	c.mu.Lock()
	if c.state == StateEnded {
		c.mu.Unlock()
		return
	}
	if c.state == StateScheduled && !now.Before(c.opensAt) {
		c.state = StateOpen
	}

	var fire func(string, int64)
	var winner string
	var amount int64
	if c.state == StateOpen && !now.Before(c.endsAt) {
		c.state = StateEnded
		if !c.endedFired {
			c.endedFired = true
			fire = c.onEnded
			winner, amount = c.highestBy, c.highest
		}
	}
	c.mu.Unlock()

	if fire != nil {
		fire(winner, amount)
	}
}
