package directory

import (
	"fmt"
	"sync"
	"time"

	"hiretalk/pkg/apperr"
)

// Typing indicators are ephemeral. They live in memory only and expire
// after typingTTL; a restart clears them, which is fine.

// now is replaced in tests.
var now = time.Now

var (
	presenceMu sync.Mutex
	// typing maps convID -> userID -> expiry.
	typing    = make(map[string]map[string]time.Time)
	typingTTL = 6 * time.Second
)

// SetTypingTTL configures how long a typing signal stays live without
// renewal.
func SetTypingTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	presenceMu.Lock()
	typingTTL = ttl
	presenceMu.Unlock()
}

// SetTyping records or clears a typing signal for userID in the
// conversation. The user must be a participant.
func SetTyping(convID, userID string, on bool) error {
	conv, err := Get(convID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return fmt.Errorf("%w: %s is not a participant of %s", apperr.ErrForbidden, userID, convID)
	}
	presenceMu.Lock()
	defer presenceMu.Unlock()
	if on {
		m := typing[convID]
		if m == nil {
			m = make(map[string]time.Time)
			typing[convID] = m
		}
		m[userID] = now().Add(typingTTL)
		return nil
	}
	if m := typing[convID]; m != nil {
		delete(m, userID)
		if len(m) == 0 {
			delete(typing, convID)
		}
	}
	return nil
}

// TypingUsers returns the set of users currently typing in the
// conversation, expiring stale entries as a side effect.
func TypingUsers(convID string) map[string]struct{} {
	presenceMu.Lock()
	defer presenceMu.Unlock()
	m := typing[convID]
	if len(m) == 0 {
		return nil
	}
	cutoff := now()
	out := make(map[string]struct{}, len(m))
	for uid, exp := range m {
		if exp.Before(cutoff) {
			delete(m, uid)
			continue
		}
		out[uid] = struct{}{}
	}
	if len(m) == 0 {
		delete(typing, convID)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
