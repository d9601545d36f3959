package hub

import (
	"encoding/json"
	"sync"

	"github.com/shoplive/liveroom/internal/config"
	"github.com/shoplive/liveroom/pkg/log"
)

// Hub fans websocket traffic out per room. Registration and broadcast
// run on one goroutine (Run), so membership mutations never race
// delivery.
type Hub struct {
	clients    map[string]*Client
	rooms      map[string]map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *RoomMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

// RoomMessage is one payload bound for every client in a room.
type RoomMessage struct {
	RoomID  string
	Message []byte
	Exclude string // client ID to skip
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *RoomMessage, 256),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.L().Debug().Str("client_id", client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.removeFromAll(client)

		case msg := <-h.broadcast:
			h.mu.RLock()
			roomClients := h.rooms[msg.RoomID]
			for clientID, client := range roomClients {
				if clientID == msg.Exclude {
					continue
				}
				select {
				case client.Send <- msg.Message:
				default:
					// A client that cannot keep up is dropped rather
					// than stalling the room.
					go func(c *Client) { h.unregister <- c }(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom adds the client to a room's delivery set and returns the
// new member count.
func (h *Hub) JoinRoom(client *Client, roomID string) int {
	h.mu.Lock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	count := len(h.rooms[roomID])
	h.mu.Unlock()

	log.L().Info().Str("client_id", client.ID).Str(log.FieldRoomID, roomID).Msg("client joined room")
	return count
}

// LeaveRoom removes the client from a room's delivery set and returns
// the new member count.
func (h *Hub) LeaveRoom(client *Client, roomID string) int {
	h.mu.Lock()
	count, _ := h.leaveLocked(client, roomID)
	h.mu.Unlock()

	log.L().Info().Str("client_id", client.ID).Str(log.FieldRoomID, roomID).Msg("client left room")
	return count
}

// BroadcastToRoom sends a JSON-encoded message to every client in the
// room except the excluded one.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.broadcast <- &RoomMessage{RoomID: roomID, Message: data, Exclude: exclude}
	return nil
}

// RoomClientCount returns the current number of clients in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) removeFromAll(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		for roomID := range h.rooms {
			h.leaveLocked(client, roomID)
		}
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.mu.Unlock()

	log.L().Debug().Str("client_id", client.ID).Msg("client unregistered")
}

// leaveLocked removes the client from one room and reports the new
// count. Caller holds h.mu.
func (h *Hub) leaveLocked(client *Client, roomID string) (int, bool) {
	roomClients, ok := h.rooms[roomID]
	if !ok {
		return 0, false
	}
	if _, member := roomClients[client.ID]; !member {
		return len(roomClients), false
	}
	delete(roomClients, client.ID)
	count := len(roomClients)
	if count == 0 {
		delete(h.rooms, roomID)
	}
	return count, true
}
