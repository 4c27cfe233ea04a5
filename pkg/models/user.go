package models

// User is an identity-directory record. Name and Role are resolved from
// here at write time when denormalizing into messages and participants.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	CreatedTS int64  `json:"created_ts,omitempty"`
	UpdatedTS int64  `json:"updated_ts,omitempty"`
}

// TypingIndicator is an ephemeral presence signal; it is never persisted.
type TypingIndicator struct {
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name,omitempty"`
	Conversation string `json:"conversation"`
}
