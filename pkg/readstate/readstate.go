// Package readstate tracks how far each participant has read in a
// conversation. One marker per user per conversation, last writer wins,
// never moving backwards.
package readstate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/fanout"
	"hiretalk/pkg/identity"
	"hiretalk/pkg/logger"
	"hiretalk/pkg/models"
	"hiretalk/pkg/store"
)

var bus *fanout.Bus

// SetBus installs the event bus read updates publish to.
func SetBus(b *fanout.Bus) { bus = b }

var marksTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hiretalk_read_marks_total",
	Help: "Read markers advanced.",
})

// Marker is the stored per-user read position.
type Marker struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	Seq      uint64 `json:"seq"`
	TS       int64  `json:"ts"`
}

// MarkRead advances userID's read position in the conversation to seq.
// The position is clamped to the ledger tail and never moves backwards;
// a stale or repeated call returns the current marker unchanged. Only
// participants may mark.
func MarkRead(convID, userID string, seq uint64) (*Marker, error) {
	unlock := store.LockConv(convID)
	defer unlock()

	conv, err := store.GetConversation(convID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, convID)
		}
		return nil, err
	}
	var member *models.Participant
	for i := range conv.Participants {
		if conv.Participants[i].UserID == userID {
			member = &conv.Participants[i]
			break
		}
	}
	if member == nil {
		// Unknown users fail lookup; known non-members are refused.
		if _, err := identity.Resolve(userID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s is not a participant of %s", apperr.ErrForbidden, userID, convID)
	}

	if seq > conv.LastSeq {
		seq = conv.LastSeq
	}

	cur, err := load(convID, userID)
	if err != nil {
		return nil, err
	}
	if cur != nil && cur.Seq >= seq {
		return cur, nil
	}

	mk := &Marker{UserID: userID, UserName: member.UserName, Seq: seq, TS: time.Now().UnixMilli()}
	raw, err := json.Marshal(mk)
	if err != nil {
		return nil, err
	}
	if err := store.SetKey(store.ReadKey(convID, userID), raw); err != nil {
		return nil, err
	}
	marksTotal.Inc()
	logger.Debug("read_mark", "conversation", convID, "user", userID, "seq", seq)
	if bus != nil {
		bus.PublishJSON(convID, fanout.EventRead, seq, userID, mk)
	}
	return mk, nil
}

// LastRead returns userID's marker, or a zero marker if the user has
// never read.
func LastRead(convID, userID string) (*Marker, error) {
	if _, err := store.GetConversation(convID); err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, convID)
		}
		return nil, err
	}
	mk, err := load(convID, userID)
	if err != nil {
		return nil, err
	}
	if mk == nil {
		return &Marker{UserID: userID}, nil
	}
	return mk, nil
}

// UnreadCount returns how many messages userID has not read. Sequences
// are gapless, so the count is the distance between the ledger tail and
// the marker.
func UnreadCount(conv *models.Conversation, userID string) (int, error) {
	mk, err := load(conv.ID, userID)
	if err != nil {
		return 0, err
	}
	var last uint64
	if mk != nil {
		last = mk.Seq
	}
	if last >= conv.LastSeq {
		return 0, nil
	}
	return int(conv.LastSeq - last), nil
}

// Markers returns every read marker stored for the conversation.
func Markers(convID string) ([]Marker, error) {
	vals, err := store.ScanPrefix(store.ReadPrefix(convID))
	if err != nil {
		return nil, err
	}
	out := make([]Marker, 0, len(vals))
	for _, raw := range vals {
		var mk Marker
		if err := json.Unmarshal(raw, &mk); err != nil {
			continue
		}
		out = append(out, mk)
	}
	return out, nil
}

func load(convID, userID string) (*Marker, error) {
	raw, err := store.Get(store.ReadKey(convID, userID))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var mk Marker
	if err := json.Unmarshal(raw, &mk); err != nil {
		return nil, fmt.Errorf("readstate: corrupt marker %s/%s: %w", convID, userID, err)
	}
	return &mk, nil
}
