package domain

import "time"

// ChatType distinguishes user chat from server-synthesized lines.
type ChatType string

const (
	ChatTypeText   ChatType = "text"
	ChatTypeSystem ChatType = "system"
)

// ChatEvent is a persisted chat line, ordered by insertion time within
// its room. ID doubles as the dedup key on the at-least-once feed.
type ChatEvent struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	Type       ChatType  `json:"type"`
	IsHost     bool      `json:"is_host"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsSystem reports whether the event was synthesized by the server.
func (c *ChatEvent) IsSystem() bool {
	return c.Type == ChatTypeSystem
}
