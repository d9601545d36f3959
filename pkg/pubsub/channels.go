package pubsub

import "fmt"

// Channel naming conventions for room event feeds.
//
// Each room gets one persisted feed channel (durable chat replayed by
// the store) and one broadcast channel (ephemeral events delivered only
// to currently-connected subscribers). Ordering is FIFO within one
// channel; nothing is guaranteed across the two.
const (
	channelRoomFeed      = "room:%s:feed"
	channelRoomBroadcast = "room:%s:broadcast"
)

// RoomFeedChannel returns the persisted feed channel for a room.
func RoomFeedChannel(roomID string) string {
	return fmt.Sprintf(channelRoomFeed, roomID)
}

// RoomBroadcastChannel returns the ephemeral broadcast channel for a room.
func RoomBroadcastChannel(roomID string) string {
	return fmt.Sprintf(channelRoomBroadcast, roomID)
}
