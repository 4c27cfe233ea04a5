// Package notify turns bus events into per-recipient notification
// records. Every participant of a conversation except the actor gets a
// record for each new message.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/fanout"
	"hiretalk/pkg/logger"
	"hiretalk/pkg/models"
	"hiretalk/pkg/store"
)

const previewLimit = 140

var notifCtr uint64

// Notifier consumes the event bus and persists notification records.
type Notifier struct {
	bus *fanout.Bus
}

func New(bus *fanout.Bus) *Notifier {
	return &Notifier{bus: bus}
}

// Start subscribes to the bus and processes events until ctx is done.
func (n *Notifier) Start(ctx context.Context) {
	ch, cancel := n.bus.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := n.handle(ev); err != nil {
					logger.Error("notify_handle", "error", err.Error(), "conversation", ev.Conversation)
				}
			}
		}
	}()
}

func (n *Notifier) handle(ev fanout.Event) error {
	if ev.Type != fanout.EventMessage {
		return nil
	}
	var msg models.Message
	if err := json.Unmarshal(ev.Payload, &msg); err != nil {
		return fmt.Errorf("notify: decode payload: %w", err)
	}
	conv, err := store.GetConversation(ev.Conversation)
	if err != nil {
		return err
	}
	preview := msg.Content
	if len(preview) > previewLimit {
		cut := previewLimit
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
	}
	now := time.Now().UnixMilli()
	var kvs []store.KV
	for _, p := range conv.Participants {
		if p.UserID == ev.Actor {
			continue
		}
		ctr := atomic.AddUint64(&notifCtr, 1)
		key := store.NotifKey(p.UserID, now, ctr)
		rec := models.Notification{
			ID:           notifID(now, ctr),
			UserID:       p.UserID,
			Conversation: ev.Conversation,
			Type:         models.NotifyNewMessage,
			Actor:        ev.Actor,
			Preview:      preview,
			TS:           now,
		}
		raw, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		kvs = append(kvs, store.KV{Key: key, Value: raw})
	}
	if len(kvs) == 0 {
		return nil
	}
	return store.SetBatch(kvs)
}

// notifID matches the key suffix under notif:<user>: so a record can be
// addressed directly from its ID.
func notifID(ts int64, ctr uint64) string {
	return fmt.Sprintf("%020d-%06d", ts, ctr)
}

// List returns userID's notifications, newest first, up to limit. When
// unseenOnly is set, seen records are skipped.
func List(userID string, limit int, unseenOnly bool) ([]*models.Notification, error) {
	vals, err := store.ScanPrefix(store.NotifPrefix(userID))
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*models.Notification
	for i := len(vals) - 1; i >= 0 && len(out) < limit; i-- {
		var rec models.Notification
		if err := json.Unmarshal(vals[i], &rec); err != nil {
			continue
		}
		if unseenOnly && rec.Seen {
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// MarkSeen flags a single notification as seen.
func MarkSeen(userID, notifID string) (*models.Notification, error) {
	key := store.NotifPrefix(userID) + notifID
	raw, err := store.Get(key)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: notification %s", apperr.ErrNotFound, notifID)
		}
		return nil, err
	}
	var rec models.Notification
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	if rec.Seen {
		return &rec, nil
	}
	rec.Seen = true
	out, err := json.Marshal(&rec)
	if err != nil {
		return nil, err
	}
	if err := store.SetKey(key, out); err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkAllSeen flags every unseen notification for userID and returns how
// many were updated.
func MarkAllSeen(userID string) (int, error) {
	keys, vals, err := store.ScanPrefixKeys(store.NotifPrefix(userID))
	if err != nil {
		return 0, err
	}
	var kvs []store.KV
	for i, raw := range vals {
		var rec models.Notification
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.Seen {
			continue
		}
		rec.Seen = true
		out, err := json.Marshal(&rec)
		if err != nil {
			return 0, err
		}
		kvs = append(kvs, store.KV{Key: keys[i], Value: out})
	}
	if len(kvs) == 0 {
		return 0, nil
	}
	if err := store.SetBatch(kvs); err != nil {
		return 0, err
	}
	return len(kvs), nil
}
