package ws

import "time"

// ConnInfo identifies one websocket connection in lifecycle events.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	Topics      []string
	ConnectedAt time.Time
}
