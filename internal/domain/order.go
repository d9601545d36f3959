package domain

import "time"

// OrderStatus follows the fulfillment lifecycle. Payment is immediate
// in this model, so a fresh order starts at shipping; later status
// changes come from the external fulfillment collaborator.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a completed purchase. TotalAmount is fixed at checkout time
// and never recomputed from the items.
type Order struct {
	ID              string      `json:"id"`
	BuyerID         string      `json:"buyer_id"`
	Items           []OrderItem `json:"items"`
	TotalAmount     int64       `json:"total_amount"`
	Status          OrderStatus `json:"status"`
	ShippingAddress string      `json:"shipping_address"`
	TrackingNumber  string      `json:"tracking_number,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// OrderItem is a product snapshot frozen at purchase time, independent
// of later product edits.
type OrderItem struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	ProductImage string `json:"product_image,omitempty"`
	Quantity     int    `json:"quantity"`
	Price        int64  `json:"price"`
	Color        string `json:"color"`
	Size         string `json:"size"`
}
