package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shoplive/liveroom/internal/auction"
	"github.com/shoplive/liveroom/internal/config"
	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/hub"
	"github.com/shoplive/liveroom/internal/room"
	"github.com/shoplive/liveroom/internal/service"
	"github.com/shoplive/liveroom/pkg/jwt"
	"github.com/shoplive/liveroom/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades room websocket connections and routes intent
// frames into each client's room orchestrator.
type WSHandler struct {
	hub        *hub.Hub
	sessions   service.SessionService
	registry   *room.Registry
	deps       room.Deps
	jwtManager *jwt.Manager
	wsCfg      config.WebSocketConfig

	mu      sync.Mutex
	entries map[string]*entry // client ID -> joined room entry
}

// entry is one client's joined room.
type entry struct {
	roomID string
	orch   *room.Orchestrator
}

// NewWSHandler creates the websocket handler.
func NewWSHandler(h *hub.Hub, sessions service.SessionService, registry *room.Registry, deps room.Deps, jwtManager *jwt.Manager, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:        h,
		sessions:   sessions,
		registry:   registry,
		deps:       deps,
		jwtManager: jwtManager,
		wsCfg:      wsCfg,
		entries:    make(map[string]*entry),
	}
}

// RegisterRoutes registers the websocket endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket authenticates via the token query parameter and
// upgrades the connection.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), claims.UserID, h.hub, conn, h.wsCfg)
	client.DisplayName = claims.DisplayName
	h.hub.Register(client)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleMessage)
		h.leave(context.Background(), client)
	}()
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid message format"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.MsgTypeJoinRoom:
		var msg domain.JoinRoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid join_room message"))
			return
		}
		h.join(ctx, client, &msg)

	case domain.MsgTypeLeaveRoom:
		h.leave(ctx, client)

	case domain.MsgTypeChat:
		var msg domain.ChatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid chat message"))
			return
		}
		orch, ok := h.entryFor(client)
		if !ok {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotJoined, "join a room first"))
			return
		}
		eventID, err := orch.SendChat(ctx, msg.Text)
		if err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, err.Error()))
			return
		}
		client.SendMessage(&domain.AckMessage{Type: domain.MsgTypeAck, Of: domain.MsgTypeChat, EventID: eventID})

	case domain.MsgTypeHeart:
		orch, ok := h.entryFor(client)
		if !ok {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotJoined, "join a room first"))
			return
		}
		if err := orch.SendHeart(ctx); err != nil {
			log.L().Warn().Err(err).Str("client_id", client.ID).Msg("heart publish failed")
		}

	case domain.MsgTypeGift:
		var msg domain.GiftMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid gift message"))
			return
		}
		orch, ok := h.entryFor(client)
		if !ok {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotJoined, "join a room first"))
			return
		}
		if _, err := orch.SendGift(ctx, msg.GiftID); err != nil {
			client.SendMessage(domain.NewErrorMessage(giftErrorCode(err), err.Error()))
			return
		}
		client.SendMessage(&domain.AckMessage{Type: domain.MsgTypeAck, Of: domain.MsgTypeGift})

	case domain.MsgTypeBid:
		var msg domain.BidMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid bid message"))
			return
		}
		orch, ok := h.entryFor(client)
		if !ok {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotJoined, "join a room first"))
			return
		}
		if err := orch.PlaceBid(ctx, msg.Amount); err != nil {
			client.SendMessage(domain.NewErrorMessage(bidErrorCode(err), err.Error()))
			return
		}
		client.SendMessage(&domain.AckMessage{Type: domain.MsgTypeAck, Of: domain.MsgTypeBid})

	case domain.MsgTypePing:
		client.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "unknown message type"))
	}
}

// join enters the client into a room: one orchestrator per entry, fan
// out wired back through the client's send queue.
func (h *WSHandler) join(ctx context.Context, client *hub.Client, msg *domain.JoinRoomMessage) {
	session, err := h.sessions.Get(ctx, msg.RoomID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "room not found"))
			return
		}
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternal, "failed to load room"))
		return
	}

	// One room per connection; joining another leaves the first.
	h.leave(ctx, client)

	role := domain.RoleViewer
	if strings.EqualFold(msg.Role, string(domain.RoleHost)) && session.HostID == client.UserID {
		role = domain.RoleHost
	}

	deps := h.deps
	deps.Auction = h.registry.Get(session.ID)

	orch, err := room.Enter(ctx, session.ID, domain.Participant{
		ID:          client.UserID,
		Role:        role,
		DisplayName: client.DisplayName,
	}, deps)
	if err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternal, "failed to join room"))
		return
	}

	orch.SetEmit(func(out room.Outbound) {
		client.SendMessage(map[string]interface{}{
			"type":      domain.MsgTypeEvent,
			"event":     out.Event,
			"confirmed": out.Confirmed,
		})
	})

	h.mu.Lock()
	h.entries[client.ID] = &entry{roomID: session.ID, orch: orch}
	h.mu.Unlock()

	count := h.hub.JoinRoom(client, session.ID)
	if err := orch.PublishViewerCount(ctx, count); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, session.ID).Msg("failed to publish viewer count")
	}

	client.SendMessage(&domain.AckMessage{Type: domain.MsgTypeAck, Of: domain.MsgTypeJoinRoom})
}

// leave tears down the client's room entry, if any.
func (h *WSHandler) leave(ctx context.Context, client *hub.Client) {
	h.mu.Lock()
	e := h.entries[client.ID]
	delete(h.entries, client.ID)
	h.mu.Unlock()

	if e == nil {
		return
	}

	count := h.hub.LeaveRoom(client, e.roomID)
	if err := e.orch.PublishViewerCount(ctx, count); err != nil && !errors.Is(err, room.ErrClosed) {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, e.roomID).Msg("failed to publish viewer count")
	}
	e.orch.Close()
}

func (h *WSHandler) entryFor(client *hub.Client) (*room.Orchestrator, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[client.ID]
	if !ok {
		return nil, false
	}
	return e.orch, true
}

func giftErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrGiftNotFound):
		return domain.ErrCodeBadRequest
	case errors.Is(err, service.ErrInsufficientFunds):
		return domain.ErrCodeInsufficientFunds
	default:
		return domain.ErrCodeInternal
	}
}

func bidErrorCode(err error) string {
	switch {
	case errors.Is(err, auction.ErrInsufficientFunds):
		return domain.ErrCodeInsufficientFunds
	case errors.Is(err, auction.ErrBidTooLow), errors.Is(err, auction.ErrNotOpen), errors.Is(err, room.ErrNotAuctionRoom):
		return domain.ErrCodeBidRejected
	default:
		return domain.ErrCodeInternal
	}
}
