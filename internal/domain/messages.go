package domain

// WebSocket message types exchanged with room clients.
const (
	MsgTypeJoinRoom  = "join_room"
	MsgTypeLeaveRoom = "leave_room"
	MsgTypeChat      = "chat"
	MsgTypeHeart     = "heart"
	MsgTypeGift      = "gift"
	MsgTypeBid       = "bid"
	MsgTypePing      = "ping"
	MsgTypePong      = "pong"
	MsgTypeEvent     = "event"
	MsgTypeError     = "error"
	MsgTypeAck       = "ack"
)

// Error codes carried on MsgTypeError frames.
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotJoined         = "NOT_JOINED"
	ErrCodeBidRejected       = "BID_REJECTED"
	ErrCodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrCodeInternal          = "INTERNAL"
)

// BaseMessage carries the discriminator for inbound frames.
type BaseMessage struct {
	Type string `json:"type"`
}

// JoinRoomMessage enters a room.
type JoinRoomMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	Role   string `json:"role"`
}

// ChatMessage sends a chat line to the joined room.
type ChatMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// GiftMessage sends a catalog gift to the joined room.
type GiftMessage struct {
	Type   string `json:"type"`
	GiftID string `json:"gift_id"`
}

// BidMessage places an auction bid in the joined room.
type BidMessage struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
}

// ErrorMessage is an outbound error frame.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage builds an outbound error frame.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{Type: MsgTypeError, Code: code, Message: message}
}

// AckMessage acknowledges an inbound intent, carrying the assigned
// event ID where one exists.
type AckMessage struct {
	Type    string `json:"type"`
	Of      string `json:"of"`
	EventID string `json:"event_id,omitempty"`
}
