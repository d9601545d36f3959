package domain

import (
	"time"
)

// Role is a participant's role in a room.
type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

// SessionStatus represents room session status.
type SessionStatus string

const (
	SessionStatusLive   SessionStatus = "live"
	SessionStatusClosed SessionStatus = "closed"
)

// Session represents one live broadcast instance. The current highest
// bid is the only durable projection of the bid stream.
type Session struct {
	ID             string        `json:"id"`
	HostID         string        `json:"host_id"`
	HostName       string        `json:"host_name"`
	Title          string        `json:"title"`
	Status         SessionStatus `json:"status"`
	IsAuction      bool          `json:"is_auction"`
	AuctionEndTime *time.Time    `json:"auction_end_time,omitempty"`
	StartingPrice  int64         `json:"starting_price,omitempty"`
	HighestBid     int64         `json:"highest_bid"`
	HighestBidder  string        `json:"highest_bidder,omitempty"`
	ViewerCount    int           `json:"viewer_count"`
	CreatedAt      time.Time     `json:"created_at"`
	ClosedAt       *time.Time    `json:"closed_at,omitempty"`
}

// Participant identifies one connected user in a room.
type Participant struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

// OpenSessionRequest represents a host opening a room.
type OpenSessionRequest struct {
	Title          string     `json:"title" binding:"required,min=1,max=200"`
	IsAuction      bool       `json:"is_auction"`
	AuctionEndTime *time.Time `json:"auction_end_time"`
	StartingPrice  int64      `json:"starting_price"`
}

// ListSessionsRequest represents a paginated list request.
type ListSessionsRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
}

// ListSessionsResponse represents a paginated list response.
type ListSessionsResponse struct {
	Sessions   []Session `json:"sessions"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}
