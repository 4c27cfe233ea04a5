package models

type Conversation struct {
	ID string `json:"id"`
	// Candidate fields are denormalized display metadata for the hiring
	// subject; they are stamped at create time.
	CandidateID       string `json:"candidate_id"`
	CandidateName     string `json:"candidate_name,omitempty"`
	CandidatePosition string `json:"candidate_position,omitempty"`

	Participants []Participant `json:"participants"`

	// LastSeq is the sequence number of the most recent message. It is
	// advanced under the conversation lock together with the message
	// write, so it is always equal to the ledger tail.
	LastSeq uint64 `json:"last_seq"`

	// LastMessage is populated on summary reads from the ledger tail; it
	// is never written independently.
	LastMessage *Message `json:"last_message,omitempty"`

	// UnreadCount is derived for the viewing user on summary reads.
	UnreadCount int `json:"unread_count"`

	CreatedTS int64 `json:"created_ts"`
	// UpdatedTS is bumped on every append and participant change.
	UpdatedTS int64 `json:"updated_ts"`

	Priority string   `json:"priority,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	// Archived marks a conversation as closed for discovery; archived
	// conversations are never deleted and still accept reads and writes.
	Archived   bool  `json:"archived,omitempty"`
	ArchivedTS int64 `json:"archived_ts,omitempty"`
}

// Participant is a membership record owned by exactly one conversation.
type Participant struct {
	UserID string `json:"user_id"`
	// UserName/UserRole are snapshots taken when the participant joined.
	UserName string `json:"user_name,omitempty"`
	UserRole string `json:"user_role,omitempty"`
	JoinedTS int64  `json:"joined_ts"`
	// IsTyping and LastSeenTS are live fields filled from the presence
	// table on summary reads; they are not persisted.
	IsTyping   bool  `json:"is_typing,omitempty"`
	LastSeenTS int64 `json:"last_seen_ts,omitempty"`
}

// HasParticipant reports whether userID is a member of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
