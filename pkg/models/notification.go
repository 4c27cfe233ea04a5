package models

// Notification event types emitted by the fanout bus.
const (
	NotifyNewMessage = "new-message"
	NotifyRead       = "read"
)

// Notification is a per-recipient record derived from a fanout event.
type Notification struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Conversation string `json:"conversation"`
	Type         string `json:"type"`
	// Actor is the user whose action produced the notification.
	Actor string `json:"actor,omitempty"`
	// Preview carries a short display payload (e.g. message excerpt).
	Preview string `json:"preview,omitempty"`
	TS      int64  `json:"ts"`
	Seen    bool   `json:"seen,omitempty"`
}
