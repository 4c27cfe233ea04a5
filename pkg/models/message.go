package models

// Priority levels shared by messages and conversations.
const (
	PriorityUrgent = "urgent"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// Attachment kinds accepted by the attachment adapter.
const (
	AttachmentDocument = "document"
	AttachmentImage    = "image"
	AttachmentVideo    = "video"
	AttachmentAudio    = "audio"
)

type Message struct {
	ID           string `json:"id"`
	Conversation string `json:"conversation"`
	// Seq is the authoritative ordering within a conversation, assigned
	// at append time. TS is advisory for display.
	Seq      uint64 `json:"seq"`
	SenderID string `json:"sender_id"`
	// SenderName/SenderRole are snapshots taken at append time and are
	// never refreshed when the user record changes.
	SenderName string `json:"sender_name,omitempty"`
	SenderRole string `json:"sender_role,omitempty"`
	Content    string `json:"content"`
	TS         int64  `json:"ts"`
	Priority   string `json:"priority,omitempty"`

	Attachments []MessageAttachment `json:"attachments,omitempty"`

	// ReadBy is derived from per-user read state at read time; it is not
	// part of the stored record.
	ReadBy []ReadReceipt `json:"read_by,omitempty"`

	Edited   bool  `json:"edited,omitempty"`
	EditedTS int64 `json:"edited_ts,omitempty"`

	// ReplyTo references an earlier message id in the same conversation.
	ReplyTo string `json:"reply_to,omitempty"`

	// Reactions maps emoji -> user ids, each user at most once per emoji.
	Reactions map[string][]string `json:"reactions,omitempty"`
}

type MessageAttachment struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Size       int64  `json:"size"`
	URL        string `json:"url"`
	UploadedTS int64  `json:"uploaded_ts,omitempty"`
}

type ReadReceipt struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	ReadTS   int64  `json:"read_ts"`
}
