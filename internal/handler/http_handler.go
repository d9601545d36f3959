package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shoplive/liveroom/internal/auction"
	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/realtime"
	"github.com/shoplive/liveroom/internal/repository"
	"github.com/shoplive/liveroom/internal/room"
	"github.com/shoplive/liveroom/internal/service"
	"github.com/shoplive/liveroom/pkg/log"
	"github.com/shoplive/liveroom/pkg/middleware"
	"github.com/shoplive/liveroom/pkg/response"
)

// defaultReplayLimit bounds a chat replay request without an explicit
// limit.
const defaultReplayLimit = 50

// Handler handles HTTP requests.
type Handler struct {
	sessions       service.SessionService
	commerce       service.CommerceService
	wallet         service.WalletService
	gifts          service.GiftService
	products       repository.ProductRepository
	bus            *realtime.Bus
	registry       *room.Registry
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	sessions service.SessionService,
	commerce service.CommerceService,
	wallet service.WalletService,
	gifts service.GiftService,
	products repository.ProductRepository,
	bus *realtime.Bus,
	registry *room.Registry,
	authMiddleware *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		sessions:       sessions,
		commerce:       commerce,
		wallet:         wallet,
		gifts:          gifts,
		products:       products,
		bus:            bus,
		registry:       registry,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		rooms := api.Group("/rooms")
		{
			rooms.GET("", h.ListRooms)
			rooms.GET("/:id", h.GetRoom)
			rooms.GET("/:id/chat", h.ReplayChat)
			rooms.GET("/:id/auction", h.AuctionState)
			rooms.GET("/:id/gifts", h.RecentGifts)

			rooms.POST("", h.authMiddleware.RequireAuth(), h.OpenRoom)
			rooms.DELETE("/:id", h.authMiddleware.RequireAuth(), h.CloseRoom)
		}

		api.GET("/products", h.ListProducts)
		api.GET("/gifts", h.GiftCatalog)

		authed := api.Group("", h.authMiddleware.RequireAuth())
		{
			authed.GET("/cart", h.GetCart)
			authed.POST("/cart", h.AddToCart)
			authed.PATCH("/cart/:id", h.UpdateCartQuantity)
			authed.POST("/checkout", h.Checkout)
			authed.POST("/buy-now", h.BuyNow)
			authed.GET("/orders", h.ListOrders)
			authed.GET("/orders/:id", h.GetOrder)
			authed.GET("/wallet", h.WalletBalance)
			authed.POST("/wallet/top-up", h.TopUp)
		}
	}
}

// Health reports process liveness.
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// OpenRoom opens a live session for the authenticated host.
func (h *Handler) OpenRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	host := domain.Participant{
		ID:          middleware.GetUserID(c),
		Role:        domain.RoleHost,
		DisplayName: middleware.GetDisplayName(c),
	}

	var req domain.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind open room request")
		response.BadRequest(c, err.Error())
		return
	}

	session, err := h.sessions.Open(ctx, host, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTitle), errors.Is(err, service.ErrInvalidAuction):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrHostAlreadyLive):
			response.Conflict(c, "HOST_ALREADY_LIVE", err.Error())
		default:
			l.Error().Err(err).Msg("failed to open room")
			response.InternalError(c, "failed to open room")
		}
		return
	}

	if session.IsAuction {
		h.registry.Start(c, session)
	}
	response.Created(c, session)
}

// CloseRoom ends the authenticated host's live session.
func (h *Handler) CloseRoom(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("id")

	err := h.sessions.Close(ctx, middleware.GetUserID(c), roomID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.NotFound(c, "room not found")
		case errors.Is(err, service.ErrNotHost):
			response.Error(c, 403, "NOT_HOST", err.Error())
		case errors.Is(err, service.ErrSessionNotLive):
			response.Conflict(c, "ROOM_NOT_LIVE", err.Error())
		default:
			log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to close room")
			response.InternalError(c, "failed to close room")
		}
		return
	}

	h.registry.Stop(roomID)
	response.Success(c, gin.H{"closed": true})
}

// GetRoom retrieves a room session by ID.
func (h *Handler) GetRoom(c *gin.Context) {
	ctx := c.Request.Context()

	session, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to get room")
		response.InternalError(c, "failed to get room")
		return
	}

	response.Success(c, session)
}

// ListRooms lists room sessions with pagination.
func (h *Handler) ListRooms(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ListSessionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.sessions.List(ctx, req.Page, req.PageSize, req.Status)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list rooms")
		response.InternalError(c, "failed to list rooms")
		return
	}

	response.Success(c, result)
}

// ReplayChat returns the room's recent persisted chat in insertion
// order.
func (h *Handler) ReplayChat(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("id")

	limit := defaultReplayLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	chats, err := h.bus.Replay(ctx, roomID, limit)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to replay chat")
		response.InternalError(c, "failed to replay chat")
		return
	}

	response.Success(c, chats)
}

// AuctionState reports the room's auction lifecycle, highest bid, and
// remaining time.
func (h *Handler) AuctionState(c *gin.Context) {
	roomID := c.Param("id")

	ctrl := h.registry.Get(roomID)
	if ctrl == nil {
		response.NotFound(c, "room has no auction")
		return
	}

	highest, bidder := ctrl.Highest()
	response.Success(c, gin.H{
		"state":          ctrl.State(),
		"highest_bid":    highest,
		"highest_bidder": bidder,
		"remaining":      ctrl.FormatRemaining(),
		"suggest_higher": ctrl.SuggestHigher(highest),
		"bid_step":       auction.BidStep,
	})
}

// RecentGifts returns the room's rolling gift log.
func (h *Handler) RecentGifts(c *gin.Context) {
	response.Success(c, h.gifts.RecentGifts(c.Param("id")))
}

// GiftCatalog returns the static gift catalog.
func (h *Handler) GiftCatalog(c *gin.Context) {
	response.Success(c, h.gifts.Catalog())
}

// ListProducts lists the product catalog.
func (h *Handler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	products, err := h.products.List(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list products")
		response.InternalError(c, "failed to list products")
		return
	}

	response.Success(c, products)
}

// GetCart returns the authenticated user's cart.
func (h *Handler) GetCart(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := h.commerce.Cart(ctx, middleware.GetUserID(c))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to get cart")
		response.InternalError(c, "failed to get cart")
		return
	}

	response.Success(c, gin.H{
		"items": items,
		"total": domain.CartTotal(items),
	})
}

type addToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// AddToCart adds a product line to the authenticated user's cart.
func (h *Handler) AddToCart(c *gin.Context) {
	ctx := c.Request.Context()

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	item, err := h.commerce.AddToCart(ctx, middleware.GetUserID(c), req.ProductID, domain.ItemOptions{
		Color:    req.Color,
		Size:     req.Size,
		Quantity: req.Quantity,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			response.NotFound(c, "product not found")
		case errors.Is(err, service.ErrInvalidOption):
			response.BadRequest(c, err.Error())
		default:
			log.Ctx(ctx).Error().Err(err).Msg("failed to add to cart")
			response.InternalError(c, "failed to add to cart")
		}
		return
	}

	response.Created(c, item)
}

type updateQuantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// UpdateCartQuantity applies a delta to a cart line; reaching zero
// removes the line.
func (h *Handler) UpdateCartQuantity(c *gin.Context) {
	ctx := c.Request.Context()

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	item, err := h.commerce.UpdateQuantity(ctx, middleware.GetUserID(c), c.Param("id"), req.Delta)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartItemNotFound):
			response.NotFound(c, "cart item not found")
		case errors.Is(err, service.ErrNotCartOwner):
			response.Error(c, 403, "NOT_CART_OWNER", err.Error())
		default:
			log.Ctx(ctx).Error().Err(err).Msg("failed to update cart quantity")
			response.InternalError(c, "failed to update cart quantity")
		}
		return
	}

	if item == nil {
		response.Success(c, gin.H{"removed": true})
		return
	}
	response.Success(c, item)
}

type checkoutRequest struct {
	ItemIDs         []string `json:"item_ids" binding:"required"`
	ShippingAddress string   `json:"shipping_address"`
}

// Checkout settles the given cart lines against the wallet.
func (h *Handler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	order, err := h.commerce.Checkout(ctx, middleware.GetUserID(c), req.ItemIDs, req.ShippingAddress)
	if err != nil {
		h.checkoutError(c, err)
		return
	}

	response.Created(c, order)
}

type buyNowRequest struct {
	ProductID       string `json:"product_id" binding:"required"`
	Color           string `json:"color"`
	Size            string `json:"size"`
	Quantity        int    `json:"quantity"`
	ShippingAddress string `json:"shipping_address"`
}

// BuyNow settles a single product line immediately, bypassing the cart.
func (h *Handler) BuyNow(c *gin.Context) {
	ctx := c.Request.Context()

	var req buyNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	order, err := h.commerce.BuyNow(ctx, middleware.GetUserID(c), req.ProductID, domain.ItemOptions{
		Color:    req.Color,
		Size:     req.Size,
		Quantity: req.Quantity,
	}, req.ShippingAddress)
	if err != nil {
		h.checkoutError(c, err)
		return
	}

	response.Created(c, order)
}

func (h *Handler) checkoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingAddress):
		response.Error(c, 400, "MISSING_ADDRESS", err.Error())
	case errors.Is(err, service.ErrEmptyCheckout):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrInsufficientFunds):
		response.PaymentRequired(c, err.Error())
	case errors.Is(err, service.ErrProductNotFound):
		response.NotFound(c, "product not found")
	case errors.Is(err, service.ErrCartItemNotFound):
		response.NotFound(c, "cart item not found")
	case errors.Is(err, service.ErrInvalidOption):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotCartOwner):
		response.Error(c, 403, "NOT_CART_OWNER", err.Error())
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("checkout failed")
		response.InternalError(c, "checkout failed")
	}
}

// ListOrders returns the authenticated user's order history.
func (h *Handler) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()

	orders, err := h.commerce.Orders(ctx, middleware.GetUserID(c))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list orders")
		response.InternalError(c, "failed to list orders")
		return
	}

	response.Success(c, orders)
}

// GetOrder returns one of the authenticated user's orders.
func (h *Handler) GetOrder(c *gin.Context) {
	ctx := c.Request.Context()

	order, err := h.commerce.Order(ctx, middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			response.NotFound(c, "order not found")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to get order")
		response.InternalError(c, "failed to get order")
		return
	}

	response.Success(c, order)
}

// WalletBalance returns the authenticated user's balance.
func (h *Handler) WalletBalance(c *gin.Context) {
	ctx := c.Request.Context()

	balance, err := h.wallet.Balance(ctx, middleware.GetUserID(c))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to get wallet balance")
		response.InternalError(c, "failed to get wallet balance")
		return
	}

	response.Success(c, gin.H{"balance": balance})
}

type topUpRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// TopUp credits one of the fixed denominations.
func (h *Handler) TopUp(c *gin.Context) {
	ctx := c.Request.Context()

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	balance, err := h.wallet.TopUp(ctx, middleware.GetUserID(c), req.Amount)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTopUp) {
			response.BadRequest(c, err.Error())
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to top up wallet")
		response.InternalError(c, "failed to top up wallet")
		return
	}

	response.Success(c, gin.H{"balance": balance})
}
