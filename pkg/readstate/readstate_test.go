package readstate_test

import (
	"errors"
	"testing"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/directory"
	"hiretalk/pkg/identity"
	"hiretalk/pkg/ledger"
	"hiretalk/pkg/models"
	"hiretalk/pkg/readstate"
	"hiretalk/pkg/store"
)

func setup(t *testing.T, messages int) string {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	for _, u := range []*models.User{
		{ID: "a", Name: "Ann", Role: "recruiter"},
		{ID: "b", Name: "Ben", Role: "hiring-manager"},
	} {
		if err := identity.Upsert(u); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	conv, err := directory.Create(directory.CreateInput{
		CandidateID:    "cand-1",
		ParticipantIDs: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < messages; i++ {
		if _, err := ledger.Append(conv.ID, ledger.AppendInput{SenderID: "a", Content: "m"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return conv.ID
}

func unread(t *testing.T, convID, userID string) int {
	t.Helper()
	conv, err := directory.Get(convID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	n, err := readstate.UnreadCount(conv, userID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	return n
}

func TestUnreadCountTracksMarker(t *testing.T) {
	convID := setup(t, 5)
	if n := unread(t, convID, "b"); n != 5 {
		t.Fatalf("unread with no marker = %d, want 5", n)
	}
	if _, err := readstate.MarkRead(convID, "b", 2); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if n := unread(t, convID, "b"); n != 3 {
		t.Fatalf("unread = %d, want 3", n)
	}
	if _, err := readstate.MarkRead(convID, "b", 5); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if n := unread(t, convID, "b"); n != 0 {
		t.Fatalf("unread = %d, want 0", n)
	}
}

func TestMarkReadIsMonotonic(t *testing.T) {
	convID := setup(t, 4)
	if _, err := readstate.MarkRead(convID, "b", 3); err != nil {
		t.Fatalf("mark: %v", err)
	}
	mk, err := readstate.MarkRead(convID, "b", 1)
	if err != nil {
		t.Fatalf("stale mark: %v", err)
	}
	if mk.Seq != 3 {
		t.Fatalf("marker moved backwards: %d", mk.Seq)
	}
}

func TestMarkReadClampsToTail(t *testing.T) {
	convID := setup(t, 2)
	mk, err := readstate.MarkRead(convID, "b", 99)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if mk.Seq != 2 {
		t.Fatalf("marker = %d, want clamp to 2", mk.Seq)
	}
}

func TestMarkReadNonParticipant(t *testing.T) {
	convID := setup(t, 1)
	if err := identity.Upsert(&models.User{ID: "c", Name: "Cam", Role: "coordinator"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := readstate.MarkRead(convID, "c", 1); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestMarkReadUnknownUser(t *testing.T) {
	convID := setup(t, 1)
	if _, err := readstate.MarkRead(convID, "ghost", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown user, got %v", err)
	}
}

func TestMarkReadUnknownConversation(t *testing.T) {
	setup(t, 0)
	if _, err := readstate.MarkRead("conv-missing", "a", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLastReadZeroForNewReader(t *testing.T) {
	convID := setup(t, 3)
	mk, err := readstate.LastRead(convID, "b")
	if err != nil {
		t.Fatalf("last read: %v", err)
	}
	if mk.Seq != 0 || mk.UserID != "b" {
		t.Fatalf("zero marker expected, got %+v", mk)
	}
}

func TestMarkerCarriesNameSnapshot(t *testing.T) {
	convID := setup(t, 2)
	mk, err := readstate.MarkRead(convID, "b", 2)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if mk.UserName != "Ben" {
		t.Fatalf("marker name = %q, want Ben", mk.UserName)
	}
}
