package ledger

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/models"
	"hiretalk/pkg/readstate"
	"hiretalk/pkg/store"
)

// DefaultPageSize bounds ListSince when the caller passes no limit.
const DefaultPageSize = 100

// Page is one page of messages plus the cursor for the next page.
type Page struct {
	Messages   []*models.Message `json:"messages"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type cursorPayload struct {
	Conversation string `json:"c"`
	After        uint64 `json:"a"`
}

// EncodeCursor builds an opaque cursor resuming after seq.
func EncodeCursor(convID string, after uint64) string {
	raw, _ := json.Marshal(cursorPayload{Conversation: convID, After: after})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor validates a cursor against the conversation it is being
// used with.
func DecodeCursor(convID, cur string) (uint64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cur)
	if err != nil {
		return 0, fmt.Errorf("%w: bad cursor", apperr.ErrInvalidArgument)
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return 0, fmt.Errorf("%w: bad cursor", apperr.ErrInvalidArgument)
	}
	if p.Conversation != convID {
		return 0, fmt.Errorf("%w: cursor belongs to another conversation", apperr.ErrInvalidArgument)
	}
	return p.After, nil
}

// ListSince returns messages with sequence numbers greater than since,
// in sequence order. A non-empty cursor overrides since. Read receipts
// are derived from the per-user read markers at call time.
func ListSince(convID string, since uint64, limit int, cursor string) (*Page, error) {
	if _, err := store.GetConversation(convID); err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, convID)
		}
		return nil, err
	}
	if cursor != "" {
		after, err := DecodeCursor(convID, cursor)
		if err != nil {
			return nil, err
		}
		since = after
	}
	if limit <= 0 || limit > 1000 {
		limit = DefaultPageSize
	}

	start := store.MsgKey(convID, since+1)
	end := store.MsgPrefix(convID) + "\xff"
	_, vals, err := store.ScanRange(start, end, limit+1)
	if err != nil {
		return nil, err
	}

	markers, err := readstate.Markers(convID)
	if err != nil {
		return nil, err
	}

	page := &Page{}
	more := len(vals) > limit
	if more {
		vals = vals[:limit]
	}
	for _, raw := range vals {
		var m models.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		m.ReadBy = receiptsFor(&m, markers)
		page.Messages = append(page.Messages, &m)
	}
	if more && len(page.Messages) > 0 {
		page.NextCursor = EncodeCursor(convID, page.Messages[len(page.Messages)-1].Seq)
	}
	return page, nil
}

// receiptsFor lists the users whose read marker covers the message. The
// sender is excluded; sending implies having seen it.
func receiptsFor(m *models.Message, markers []readstate.Marker) []models.ReadReceipt {
	var out []models.ReadReceipt
	for _, mk := range markers {
		if mk.UserID == m.SenderID || mk.Seq < m.Seq {
			continue
		}
		out = append(out, models.ReadReceipt{UserID: mk.UserID, UserName: mk.UserName, ReadTS: mk.TS})
	}
	return out
}
