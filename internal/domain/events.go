package domain

import (
	"fmt"
	"time"

	"github.com/shoplive/liveroom/pkg/pubsub"
)

// EventKind is the closed set of room event kinds. Chat is persisted
// and replayed through the store feed; every other kind is ephemeral.
type EventKind string

const (
	KindChat        EventKind = "chat"
	KindHeart       EventKind = "heart"
	KindBid         EventKind = "bid"
	KindGift        EventKind = "gift"
	KindViewerCount EventKind = "viewer_count"
)

// Persisted reports whether events of this kind are durably stored.
func (k EventKind) Persisted() bool {
	return k == KindChat
}

// ChatPayload is the payload for KindChat events.
type ChatPayload struct {
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	IsSystem   bool      `json:"is_system"`
	IsHost     bool      `json:"is_host"`
	SentAt     time.Time `json:"sent_at"`
}

// HeartPayload is the payload for KindHeart events.
type HeartPayload struct {
	SenderID string `json:"sender_id"`
}

// BidPayload is the payload for KindBid events. Amount is in room
// currency units.
type BidPayload struct {
	Amount     int64     `json:"amount"`
	BidderID   string    `json:"bidder_id"`
	BidderName string    `json:"bidder_name"`
	PlacedAt   time.Time `json:"placed_at"`
}

// GiftPayload is the payload for KindGift events.
type GiftPayload struct {
	GiftID     string `json:"gift_id"`
	UnitPrice  int64  `json:"unit_price"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
}

// ViewerCountPayload is the payload for KindViewerCount ticks.
type ViewerCountPayload struct {
	Count int `json:"count"`
}

// DecodePayload decodes a bus event into its fixed payload shape.
// The kind set is closed; an unknown kind is an error, never a cast.
func DecodePayload(e *pubsub.Event) (interface{}, error) {
	switch EventKind(e.Kind) {
	case KindChat:
		var p ChatPayload
		if err := e.UnmarshalPayload(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindHeart:
		var p HeartPayload
		if err := e.UnmarshalPayload(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindBid:
		var p BidPayload
		if err := e.UnmarshalPayload(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindGift:
		var p GiftPayload
		if err := e.UnmarshalPayload(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindViewerCount:
		var p ViewerCountPayload
		if err := e.UnmarshalPayload(&p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}
