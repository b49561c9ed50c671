// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the channel handler. These give
// clients more specific closure reasons than the standard codes.
const (
	BadSubprotocolError    = 3000 // Client connected with an unsupported subprotocol.
	InvalidRoomCodeError   = 3001 // Room code in the WS URL was malformed.
	RateLimitExceededError = 3002 // Client published faster than the channel allows.
)
