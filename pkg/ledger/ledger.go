// Package ledger owns the append-only message log. Each conversation is
// a gapless sequence of messages; sequence numbers are allocated under a
// per-conversation lock and committed atomically with the conversation
// meta record.
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/fanout"
	"hiretalk/pkg/logger"
	"hiretalk/pkg/models"
	"hiretalk/pkg/store"
	"hiretalk/pkg/utils"
)

var bus *fanout.Bus

// SetBus installs the event bus appends and edits publish to. A nil bus
// disables publishing.
func SetBus(b *fanout.Bus) { bus = b }

var versionCtr uint64

var appendsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hiretalk_ledger_appends_total",
	Help: "Messages committed to the ledger.",
})

// AppendInput carries the caller-supplied fields of a new message.
type AppendInput struct {
	SenderID    string
	Content     string
	Priority    string
	ReplyTo     string
	Attachments []models.MessageAttachment
}

// Append validates in, allocates the next sequence number and commits
// the message. The sender must be a participant. ReplyTo, when set, must
// name an existing message in the same conversation.
func Append(convID string, in AppendInput) (*models.Message, error) {
	if strings.TrimSpace(in.SenderID) == "" {
		return nil, fmt.Errorf("%w: sender required", apperr.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Content) == "" && len(in.Attachments) == 0 {
		return nil, fmt.Errorf("%w: empty message", apperr.ErrInvalidArgument)
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	switch priority {
	case models.PriorityUrgent, models.PriorityNormal, models.PriorityLow:
	default:
		return nil, fmt.Errorf("%w: priority %q", apperr.ErrInvalidArgument, in.Priority)
	}

	unlock := store.LockConv(convID)
	defer unlock()

	conv, err := store.GetConversation(convID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, convID)
		}
		return nil, err
	}
	var sender *models.Participant
	for i := range conv.Participants {
		if conv.Participants[i].UserID == in.SenderID {
			sender = &conv.Participants[i]
			break
		}
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: %s is not a participant of %s", apperr.ErrForbidden, in.SenderID, convID)
	}

	if in.ReplyTo != "" {
		if _, err := store.Get(store.MsgIdxKey(convID, in.ReplyTo)); err != nil {
			if store.IsNotFound(err) {
				return nil, fmt.Errorf("%w: reply target %s", apperr.ErrInvalidReference, in.ReplyTo)
			}
			return nil, err
		}
	}

	now := time.Now().UnixMilli()
	msg := &models.Message{
		ID:           utils.GenMessageID(),
		Conversation: convID,
		Seq:          conv.LastSeq + 1,
		SenderID:     sender.UserID,
		SenderName:   sender.UserName,
		SenderRole:   sender.UserRole,
		Content:      in.Content,
		ReplyTo:      in.ReplyTo,
		TS:           now,
		Priority:     priority,
		Attachments:  in.Attachments,
	}

	conv.LastSeq = msg.Seq
	conv.UpdatedTS = now

	kvs, err := messageBatch(conv, msg)
	if err != nil {
		return nil, err
	}
	if err := store.SetBatch(kvs); err != nil {
		return nil, err
	}
	appendsTotal.Inc()
	logger.Info("ledger_append", "conversation", convID, "seq", msg.Seq, "sender", msg.SenderID)
	if bus != nil {
		bus.PublishJSON(convID, fanout.EventMessage, msg.Seq, msg.SenderID, msg)
	}
	return msg, nil
}

// Edit replaces the content of a message. Only the original sender may
// edit. The prior content is retained as a version record.
func Edit(convID, msgID, editorID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty content", apperr.ErrInvalidArgument)
	}
	unlock := store.LockConv(convID)
	defer unlock()

	msg, err := getBySeqIdx(convID, msgID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != editorID {
		return nil, fmt.Errorf("%w: only the sender may edit", apperr.ErrForbidden)
	}

	now := time.Now().UnixMilli()
	prior, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	verKey := store.VersionKey(msgID, now, atomic.AddUint64(&versionCtr, 1))

	msg.Content = content
	msg.Edited = true
	msg.EditedTS = now

	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	kvs := []store.KV{
		{Key: verKey, Value: prior},
		{Key: store.MsgKey(convID, msg.Seq), Value: raw},
	}
	if err := store.SetBatch(kvs); err != nil {
		return nil, err
	}
	logger.Info("ledger_edit", "conversation", convID, "seq", msg.Seq, "editor", editorID)
	if bus != nil {
		bus.PublishJSON(convID, fanout.EventMessage, msg.Seq, editorID, msg)
	}
	return msg, nil
}

// React adds userID under emoji on the message. Adding an existing
// reaction is a no-op. The reactor must be a participant.
func React(convID, msgID, userID, emoji string) (*models.Message, error) {
	return mutateReaction(convID, msgID, userID, emoji, true)
}

// Unreact removes userID from emoji on the message. Removing an absent
// reaction is a no-op.
func Unreact(convID, msgID, userID, emoji string) (*models.Message, error) {
	return mutateReaction(convID, msgID, userID, emoji, false)
}

func mutateReaction(convID, msgID, userID, emoji string, add bool) (*models.Message, error) {
	if strings.TrimSpace(emoji) == "" {
		return nil, fmt.Errorf("%w: empty emoji", apperr.ErrInvalidArgument)
	}
	unlock := store.LockConv(convID)
	defer unlock()

	conv, err := store.GetConversation(convID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, convID)
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: %s is not a participant of %s", apperr.ErrForbidden, userID, convID)
	}

	msg, err := getBySeqIdx(convID, msgID)
	if err != nil {
		return nil, err
	}

	users := msg.Reactions[emoji]
	changed := false
	if add {
		found := false
		for _, u := range users {
			if u == userID {
				found = true
				break
			}
		}
		if !found {
			if msg.Reactions == nil {
				msg.Reactions = make(map[string][]string)
			}
			msg.Reactions[emoji] = append(users, userID)
			changed = true
		}
	} else {
		kept := users[:0]
		for _, u := range users {
			if u == userID {
				changed = true
				continue
			}
			kept = append(kept, u)
		}
		if changed {
			if len(kept) == 0 {
				delete(msg.Reactions, emoji)
			} else {
				msg.Reactions[emoji] = kept
			}
		}
	}
	if !changed {
		return msg, nil
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if err := store.SetKey(store.MsgKey(convID, msg.Seq), raw); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessage returns the message with the given ID.
func GetMessage(convID, msgID string) (*models.Message, error) {
	unlock := store.LockConv(convID)
	defer unlock()
	return getBySeqIdx(convID, msgID)
}

// Tail returns the most recent message, or nil for an empty
// conversation.
func Tail(conv *models.Conversation) (*models.Message, error) {
	if conv.LastSeq == 0 {
		return nil, nil
	}
	raw, err := store.Get(store.MsgKey(conv.ID, conv.LastSeq))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var m models.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Versions returns the retained prior versions of a message, oldest
// first.
func Versions(msgID string) ([]*models.Message, error) {
	vals, err := store.ScanPrefix(store.VersionPrefix(msgID))
	if err != nil {
		return nil, err
	}
	out := make([]*models.Message, 0, len(vals))
	for _, raw := range vals {
		var m models.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

// getBySeqIdx resolves msgID through the index key and loads the
// message. Callers hold the conversation lock when mutating.
func getBySeqIdx(convID, msgID string) (*models.Message, error) {
	raw, err := store.Get(store.MsgIdxKey(convID, msgID))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: message %s", apperr.ErrNotFound, msgID)
		}
		return nil, err
	}
	seq, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ledger: corrupt index for %s: %w", msgID, err)
	}
	mraw, err := store.Get(store.MsgKey(convID, seq))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: message %s", apperr.ErrNotFound, msgID)
		}
		return nil, err
	}
	var m models.Message
	if err := json.Unmarshal(mraw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// messageBatch builds the atomic write set for a new message: message
// payload, ID index and the advanced conversation meta.
func messageBatch(conv *models.Conversation, msg *models.Message) ([]store.KV, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	metaKV, err := store.ConversationKV(conv)
	if err != nil {
		return nil, err
	}
	return []store.KV{
		{Key: store.MsgKey(conv.ID, msg.Seq), Value: raw},
		{Key: store.MsgIdxKey(conv.ID, msg.ID), Value: []byte(strconv.FormatUint(msg.Seq, 10))},
		metaKV,
	}, nil
}
