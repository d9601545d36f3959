package domain

import (
	"time"

	"gorm.io/gorm"

	"github.com/shoplive/liveroom/pkg/database"
)

// SessionModel is the GORM model for the sessions table.
type SessionModel struct {
	ID             string `gorm:"type:varchar(36);primaryKey"`
	HostID         string `gorm:"type:varchar(36);index;not null"`
	HostName       string `gorm:"type:varchar(50);not null"`
	Title          string `gorm:"type:varchar(200);not null"`
	Status         string `gorm:"type:varchar(20);index;not null;default:'live'"`
	IsAuction      bool   `gorm:"not null;default:false"`
	AuctionEndTime *time.Time
	StartingPrice  int64      `gorm:"not null;default:0"`
	HighestBid     int64      `gorm:"not null;default:0"`
	HighestBidder  string     `gorm:"type:varchar(36)"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	ClosedAt       *time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for SessionModel.
func (SessionModel) TableName() string {
	return "sessions"
}

// ToDomain converts SessionModel to domain Session.
func (m *SessionModel) ToDomain() *Session {
	return &Session{
		ID:             m.ID,
		HostID:         m.HostID,
		HostName:       m.HostName,
		Title:          m.Title,
		Status:         SessionStatus(m.Status),
		IsAuction:      m.IsAuction,
		AuctionEndTime: m.AuctionEndTime,
		StartingPrice:  m.StartingPrice,
		HighestBid:     m.HighestBid,
		HighestBidder:  m.HighestBidder,
		CreatedAt:      m.CreatedAt,
		ClosedAt:       m.ClosedAt,
	}
}

// SessionToModel converts domain Session to SessionModel.
func SessionToModel(s *Session) *SessionModel {
	return &SessionModel{
		ID:             s.ID,
		HostID:         s.HostID,
		HostName:       s.HostName,
		Title:          s.Title,
		Status:         string(s.Status),
		IsAuction:      s.IsAuction,
		AuctionEndTime: s.AuctionEndTime,
		StartingPrice:  s.StartingPrice,
		HighestBid:     s.HighestBid,
		HighestBidder:  s.HighestBidder,
		CreatedAt:      s.CreatedAt,
		ClosedAt:       s.ClosedAt,
	}
}

// ChatEventModel is the GORM model for the chat_events table.
type ChatEventModel struct {
	ID         string    `gorm:"type:varchar(26);primaryKey"`
	RoomID     string    `gorm:"type:varchar(36);index:idx_room_created;not null"`
	SenderID   string    `gorm:"type:varchar(36);not null"`
	SenderName string    `gorm:"type:varchar(50);not null"`
	Content    string    `gorm:"type:text;not null"`
	Type       string    `gorm:"type:varchar(10);not null;default:'text'"`
	IsHost     bool      `gorm:"not null;default:false"`
	IsRead     bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_room_created"`
}

// TableName specifies the table name for ChatEventModel.
func (ChatEventModel) TableName() string {
	return "chat_events"
}

// ToDomain converts ChatEventModel to domain ChatEvent.
func (m *ChatEventModel) ToDomain() *ChatEvent {
	return &ChatEvent{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Text:       m.Content,
		Type:       ChatType(m.Type),
		IsHost:     m.IsHost,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

// ChatEventToModel converts domain ChatEvent to ChatEventModel.
func ChatEventToModel(c *ChatEvent) *ChatEventModel {
	return &ChatEventModel{
		ID:         c.ID,
		RoomID:     c.RoomID,
		SenderID:   c.SenderID,
		SenderName: c.SenderName,
		Content:    c.Text,
		Type:       string(c.Type),
		IsHost:     c.IsHost,
		IsRead:     c.IsRead,
		CreatedAt:  c.CreatedAt,
	}
}

// ProductModel is the GORM model for the products table.
type ProductModel struct {
	ID        string               `gorm:"type:varchar(36);primaryKey"`
	Name      string               `gorm:"type:varchar(200);not null"`
	ImageRef  string               `gorm:"type:varchar(500)"`
	UnitPrice int64                `gorm:"not null"`
	Colors    database.StringArray `gorm:"type:text"`
	Sizes     database.StringArray `gorm:"type:text"`
	CreatedAt time.Time            `gorm:"autoCreateTime"`
	DeletedAt gorm.DeletedAt       `gorm:"index"`
}

// TableName specifies the table name for ProductModel.
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts ProductModel to domain Product.
func (m *ProductModel) ToDomain() *Product {
	return &Product{
		ID:        m.ID,
		Name:      m.Name,
		ImageRef:  m.ImageRef,
		UnitPrice: m.UnitPrice,
		Colors:    []string(m.Colors),
		Sizes:     []string(m.Sizes),
	}
}

// CartItemModel is the GORM model for the cart_items table.
type CartItemModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	UserID       string    `gorm:"type:varchar(36);index;not null"`
	ProductID    string    `gorm:"type:varchar(36);not null"`
	ProductName  string    `gorm:"type:varchar(200);not null"`
	ProductImage string    `gorm:"type:varchar(500)"`
	UnitPrice    int64     `gorm:"not null"`
	Quantity     int       `gorm:"not null;default:1"`
	Color        string    `gorm:"type:varchar(50)"`
	Size         string    `gorm:"type:varchar(50)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for CartItemModel.
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts CartItemModel to domain CartItem.
func (m *CartItemModel) ToDomain() *CartItem {
	return &CartItem{
		ID:           m.ID,
		UserID:       m.UserID,
		ProductID:    m.ProductID,
		ProductName:  m.ProductName,
		ProductImage: m.ProductImage,
		UnitPrice:    m.UnitPrice,
		Quantity:     m.Quantity,
		Color:        m.Color,
		Size:         m.Size,
		AddedAt:      m.CreatedAt,
	}
}

// CartItemToModel converts domain CartItem to CartItemModel.
func CartItemToModel(i *CartItem) *CartItemModel {
	return &CartItemModel{
		ID:           i.ID,
		UserID:       i.UserID,
		ProductID:    i.ProductID,
		ProductName:  i.ProductName,
		ProductImage: i.ProductImage,
		UnitPrice:    i.UnitPrice,
		Quantity:     i.Quantity,
		Color:        i.Color,
		Size:         i.Size,
		CreatedAt:    i.AddedAt,
	}
}

// OrderModel is the GORM model for the orders table.
type OrderModel struct {
	ID              string           `gorm:"type:varchar(36);primaryKey"`
	BuyerID         string           `gorm:"type:varchar(36);index;not null"`
	TotalAmount     int64            `gorm:"not null"`
	Status          string           `gorm:"type:varchar(20);index;not null"`
	ShippingAddress string           `gorm:"type:text;not null"`
	TrackingNumber  string           `gorm:"type:varchar(100)"`
	Items           []OrderItemModel `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time        `gorm:"autoCreateTime"`
}

// TableName specifies the table name for OrderModel.
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the GORM model for the order_items table.
type OrderItemModel struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	OrderID      string `gorm:"type:varchar(36);index;not null"`
	ProductID    string `gorm:"type:varchar(36);not null"`
	ProductName  string `gorm:"type:varchar(200);not null"`
	ProductImage string `gorm:"type:varchar(500)"`
	Quantity     int    `gorm:"not null"`
	Price        int64  `gorm:"not null"`
	Color        string `gorm:"type:varchar(50)"`
	Size         string `gorm:"type:varchar(50)"`
}

// TableName specifies the table name for OrderItemModel.
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts OrderModel (with items) to domain Order.
func (m *OrderModel) ToDomain() *Order {
	items := make([]OrderItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = OrderItem{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Quantity:     item.Quantity,
			Price:        item.Price,
			Color:        item.Color,
			Size:         item.Size,
		}
	}
	return &Order{
		ID:              m.ID,
		BuyerID:         m.BuyerID,
		Items:           items,
		TotalAmount:     m.TotalAmount,
		Status:          OrderStatus(m.Status),
		ShippingAddress: m.ShippingAddress,
		TrackingNumber:  m.TrackingNumber,
		CreatedAt:       m.CreatedAt,
	}
}

// OrderToModel converts domain Order to OrderModel with items.
func OrderToModel(o *Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			OrderID:      o.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Quantity:     item.Quantity,
			Price:        item.Price,
			Color:        item.Color,
			Size:         item.Size,
		}
	}
	return &OrderModel{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		TrackingNumber:  o.TrackingNumber,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}

// WalletModel is the GORM model for the wallets table.
type WalletModel struct {
	UserID    string    `gorm:"type:varchar(36);primaryKey"`
	Balance   int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for WalletModel.
func (WalletModel) TableName() string {
	return "wallets"
}

// ToDomain converts WalletModel to domain WalletBalance.
func (m *WalletModel) ToDomain() *WalletBalance {
	return &WalletBalance{
		UserID:    m.UserID,
		Balance:   m.Balance,
		UpdatedAt: m.UpdatedAt,
	}
}
