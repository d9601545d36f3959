package domain

import "time"

// ItemOptions is the buyer's selection for one cart line.
type ItemOptions struct {
	Color    string `json:"color"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// CartItem is one line in a user's cart. Quantity is always >= 1; a
// decrement that would reach zero removes the line instead.
type CartItem struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	ProductImage string    `json:"product_image,omitempty"`
	UnitPrice    int64     `json:"unit_price"`
	Quantity     int       `json:"quantity"`
	Color        string    `json:"color"`
	Size         string    `json:"size"`
	AddedAt      time.Time `json:"added_at"`
}

// LineTotal returns price times quantity for this line.
func (i *CartItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// CartTotal sums line totals over the given items.
func CartTotal(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}
