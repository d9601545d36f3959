package domain

import "time"

// Gift is one entry in the static gift catalog.
type Gift struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	IconRef string `json:"icon_ref"`
	Color   string `json:"color"`
}

// GiftCatalog is the pre-defined enumerable gift set.
var GiftCatalog = []Gift{
	{ID: "heart-burst", Name: "Heart Burst", Price: 10, IconRef: "gifts/heart_burst", Color: "#e91e63"},
	{ID: "rose", Name: "Rose", Price: 30, IconRef: "gifts/rose", Color: "#f44336"},
	{ID: "confetti", Name: "Confetti", Price: 50, IconRef: "gifts/confetti", Color: "#ff9800"},
	{ID: "diamond", Name: "Diamond", Price: 100, IconRef: "gifts/diamond", Color: "#03a9f4"},
	{ID: "rocket", Name: "Rocket", Price: 300, IconRef: "gifts/rocket", Color: "#9c27b0"},
	{ID: "crown", Name: "Crown", Price: 500, IconRef: "gifts/crown", Color: "#ffc107"},
}

// GiftEvent records one gift send. Ephemeral: a rolling capped log is
// kept in memory for host-side display only.
type GiftEvent struct {
	GiftID     string    `json:"gift_id"`
	Name       string    `json:"name"`
	UnitPrice  int64     `json:"unit_price"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	SentAt     time.Time `json:"sent_at"`
}

// GiftByID looks up a catalog entry.
func GiftByID(id string) (Gift, bool) {
	for _, g := range GiftCatalog {
		if g.ID == id {
			return g, true
		}
	}
	return Gift{}, false
}
