package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Domain
	FieldRoomID    = "room_id"
	FieldOrderID   = "order_id"
	FieldEventKind = "event_kind"
	FieldAmount    = "amount"

	// Service
	FieldService = "service"
)
