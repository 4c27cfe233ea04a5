// Package directory manages conversation records: creation, membership
// and the derived summaries the inbox view is built from.
package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/identity"
	"hiretalk/pkg/ledger"
	"hiretalk/pkg/logger"
	"hiretalk/pkg/models"
	"hiretalk/pkg/readstate"
	"hiretalk/pkg/store"
	"hiretalk/pkg/utils"
)

// CreateInput carries the caller-supplied fields of a new conversation.
type CreateInput struct {
	CandidateID       string
	CandidateName     string
	CandidatePosition string
	ParticipantIDs    []string
	Priority          string
	Tags              []string
}

// Create validates in, snapshots participant names from the user
// directory and persists the conversation. At least one participant is
// required, and every participant must exist.
func Create(in CreateInput) (*models.Conversation, error) {
	if strings.TrimSpace(in.CandidateID) == "" {
		return nil, fmt.Errorf("%w: candidate id required", apperr.ErrInvalidArgument)
	}
	if len(in.ParticipantIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one participant required", apperr.ErrInvalidArgument)
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

	now := time.Now().UnixMilli()
	seen := make(map[string]struct{}, len(in.ParticipantIDs))
	parts := make([]models.Participant, 0, len(in.ParticipantIDs))
	for _, id := range in.ParticipantIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		u, err := identity.Resolve(id)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: participant %s", apperr.ErrInvalidReference, id)
			}
			return nil, err
		}
		parts = append(parts, models.Participant{
			UserID:   u.ID,
			UserName: u.Name,
			UserRole: u.Role,
			JoinedTS: now,
		})
	}

	conv := &models.Conversation{
		ID:                utils.GenConversationID(),
		CandidateID:       in.CandidateID,
		CandidateName:     strings.TrimSpace(in.CandidateName),
		CandidatePosition: strings.TrimSpace(in.CandidatePosition),
		Participants:      parts,
		CreatedTS:         now,
		UpdatedTS:         now,
		Priority:          priority,
		Tags:              in.Tags,
	}
	if err := store.PutConversation(conv); err != nil {
		return nil, err
	}
	logger.Info("conversation_create", "conversation", conv.ID, "candidate", conv.CandidateID, "participants", len(parts))
	return conv, nil
}

// Get loads a conversation by ID.
func Get(convID string) (*models.Conversation, error) {
	conv, err := store.GetConversation(convID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, convID)
		}
		return nil, err
	}
	return conv, nil
}

// AddParticipant joins userID to the conversation with a fresh name
// snapshot. Joining twice is a conflict.
func AddParticipant(convID, userID string) (*models.Conversation, error) {
	unlock := store.LockConv(convID)
	defer unlock()

	conv, err := Get(convID)
	if err != nil {
		return nil, err
	}
	if conv.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: %s already a participant", apperr.ErrConflict, userID)
	}
	u, err := identity.Resolve(userID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: participant %s", apperr.ErrInvalidReference, userID)
		}
		return nil, err
	}
	now := time.Now().UnixMilli()
	conv.Participants = append(conv.Participants, models.Participant{
		UserID:   u.ID,
		UserName: u.Name,
		UserRole: u.Role,
		JoinedTS: now,
	})
	conv.UpdatedTS = now
	if err := store.PutConversation(conv); err != nil {
		return nil, err
	}
	logger.Info("participant_add", "conversation", convID, "user", userID)
	return conv, nil
}

// RemoveParticipant removes userID from the conversation. The last
// participant cannot be removed. The user's messages and read marker are
// retained so historic receipts stay intact.
func RemoveParticipant(convID, userID string) (*models.Conversation, error) {
	unlock := store.LockConv(convID)
	defer unlock()

	conv, err := Get(convID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range conv.Participants {
		if conv.Participants[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: participant %s", apperr.ErrNotFound, userID)
	}
	if len(conv.Participants) == 1 {
		return nil, fmt.Errorf("%w: cannot remove the last participant", apperr.ErrInvalidArgument)
	}
	conv.Participants = append(conv.Participants[:idx], conv.Participants[idx+1:]...)
	conv.UpdatedTS = time.Now().UnixMilli()
	if err := store.PutConversation(conv); err != nil {
		return nil, err
	}
	logger.Info("participant_remove", "conversation", convID, "user", userID)
	return conv, nil
}

// Archive flips the advisory archived flag. Archived conversations stay
// readable and writable; the flag only affects default listings.
func Archive(convID string, archived bool) (*models.Conversation, error) {
	unlock := store.LockConv(convID)
	defer unlock()

	conv, err := Get(convID)
	if err != nil {
		return nil, err
	}
	if conv.Archived == archived {
		return conv, nil
	}
	conv.Archived = archived
	if archived {
		conv.ArchivedTS = time.Now().UnixMilli()
	} else {
		conv.ArchivedTS = 0
	}
	conv.UpdatedTS = time.Now().UnixMilli()
	if err := store.PutConversation(conv); err != nil {
		return nil, err
	}
	logger.Info("conversation_archive", "conversation", convID, "archived", archived)
	return conv, nil
}

// Summary returns the conversation with its derived fields filled for
// the viewing user: ledger tail, unread count, and live typing flags.
func Summary(convID, viewerID string) (*models.Conversation, error) {
	conv, err := Get(convID)
	if err != nil {
		return nil, err
	}
	if viewerID != "" && !conv.HasParticipant(viewerID) {
		return nil, fmt.Errorf("%w: %s is not a participant of %s", apperr.ErrForbidden, viewerID, convID)
	}
	if err := fillDerived(conv, viewerID); err != nil {
		return nil, err
	}
	return conv, nil
}

// List returns the conversations userID participates in, most recently
// updated first. Archived conversations are included only when asked
// for.
func List(userID string, includeArchived bool) ([]*models.Conversation, error) {
	keys, vals, err := store.ScanPrefixKeys(store.ConvKeyPrefix)
	if err != nil {
		return nil, err
	}
	var out []*models.Conversation
	for i, k := range keys {
		if !strings.HasSuffix(k, ":meta") {
			continue
		}
		var c models.Conversation
		if err := json.Unmarshal(vals[i], &c); err != nil {
			continue
		}
		if userID != "" && !c.HasParticipant(userID) {
			continue
		}
		if c.Archived && !includeArchived {
			continue
		}
		if err := fillDerived(&c, userID); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedTS > out[j].UpdatedTS })
	return out, nil
}

func fillDerived(conv *models.Conversation, viewerID string) error {
	tail, err := ledger.Tail(conv)
	if err != nil {
		return err
	}
	conv.LastMessage = tail
	if viewerID != "" {
		n, err := readstate.UnreadCount(conv, viewerID)
		if err != nil {
			return err
		}
		conv.UnreadCount = n
	}
	markers, err := readstate.Markers(conv.ID)
	if err != nil {
		return err
	}
	lastSeen := make(map[string]int64, len(markers))
	for _, mk := range markers {
		lastSeen[mk.UserID] = mk.TS
	}
	typing := TypingUsers(conv.ID)
	for i := range conv.Participants {
		p := &conv.Participants[i]
		if ts, ok := lastSeen[p.UserID]; ok {
			p.LastSeenTS = ts
		}
		if _, ok := typing[p.UserID]; ok {
			p.IsTyping = true
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
