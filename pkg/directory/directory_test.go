package directory

import (
	"errors"
	"testing"
	"time"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/identity"
	"hiretalk/pkg/ledger"
	"hiretalk/pkg/models"
	"hiretalk/pkg/readstate"
	"hiretalk/pkg/store"
)

func setup(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	for _, u := range []*models.User{
		{ID: "rec", Name: "Robin Recruiter", Role: "recruiter"},
		{ID: "mgr", Name: "Max Manager", Role: "hiring-manager"},
		{ID: "coord", Name: "Casey Coordinator", Role: "coordinator"},
	} {
		if err := identity.Upsert(u); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
}

func mustCreate(t *testing.T, participants ...string) *models.Conversation {
	t.Helper()
	conv, err := Create(CreateInput{
		CandidateID:    "cand-1",
		CandidateName:  "Alex Doe",
		ParticipantIDs: participants,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return conv
}

func TestCreateValidation(t *testing.T) {
	setup(t)
	if _, err := Create(CreateInput{CandidateID: "c", ParticipantIDs: nil}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("no participants: want ErrInvalidArgument, got %v", err)
	}
	if _, err := Create(CreateInput{ParticipantIDs: []string{"rec"}}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("no candidate: want ErrInvalidArgument, got %v", err)
	}
	if _, err := Create(CreateInput{CandidateID: "c", ParticipantIDs: []string{"ghost"}}); !errors.Is(err, apperr.ErrInvalidReference) {
		t.Fatalf("unknown user: want ErrInvalidReference, got %v", err)
	}
	if _, err := Create(CreateInput{CandidateID: "c", ParticipantIDs: []string{"rec"}, Priority: "asap"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("bad priority: want ErrInvalidArgument, got %v", err)
	}
}

func TestCreateSnapshotsParticipantNames(t *testing.T) {
	setup(t)
	conv := mustCreate(t, "rec", "mgr")
	if len(conv.Participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(conv.Participants))
	}
	if conv.Participants[0].UserName != "Robin Recruiter" || conv.Participants[0].UserRole != "recruiter" {
		t.Fatalf("snapshot missing: %+v", conv.Participants[0])
	}
	if conv.Priority != models.PriorityNormal {
		t.Fatalf("default priority = %q", conv.Priority)
	}
}

func TestAddParticipant(t *testing.T) {
	setup(t)
	conv := mustCreate(t, "rec")
	updated, err := AddParticipant(conv.ID, "mgr")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !updated.HasParticipant("mgr") {
		t.Fatalf("mgr not added")
	}
	if _, err := AddParticipant(conv.ID, "mgr"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate add: want ErrConflict, got %v", err)
	}
	if _, err := AddParticipant(conv.ID, "ghost"); !errors.Is(err, apperr.ErrInvalidReference) {
		t.Fatalf("unknown user: want ErrInvalidReference, got %v", err)
	}
}

func TestRemoveParticipant(t *testing.T) {
	setup(t)
	conv := mustCreate(t, "rec", "mgr")
	if _, err := ledger.Append(conv.ID, ledger.AppendInput{SenderID: "rec", Content: "m"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := readstate.MarkRead(conv.ID, "mgr", 1); err != nil {
		t.Fatalf("mark: %v", err)
	}
	updated, err := RemoveParticipant(conv.ID, "mgr")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if updated.HasParticipant("mgr") {
		t.Fatalf("mgr still present")
	}
	// historic read receipts survive the removal
	if _, err := store.Get(store.ReadKey(conv.ID, "mgr")); err != nil {
		t.Fatalf("read marker should be retained, got %v", err)
	}
	page, err := ledger.ListSince(conv.ID, 0, 0, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Messages) != 1 || len(page.Messages[0].ReadBy) != 1 {
		t.Fatalf("receipts lost after removal: %+v", page.Messages)
	}
	if _, err := RemoveParticipant(conv.ID, "rec"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("removing last participant: want ErrInvalidArgument, got %v", err)
	}
	if _, err := RemoveParticipant(conv.ID, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("removing non-member: want ErrNotFound, got %v", err)
	}
}

func TestSummaryDerivedFields(t *testing.T) {
	setup(t)
	conv := mustCreate(t, "rec", "mgr")
	for i := 0; i < 3; i++ {
		if _, err := ledger.Append(conv.ID, ledger.AppendInput{SenderID: "rec", Content: "hello"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := readstate.MarkRead(conv.ID, "mgr", 1); err != nil {
		t.Fatalf("mark: %v", err)
	}
	sum, err := Summary(conv.ID, "mgr")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.LastMessage == nil || sum.LastMessage.Seq != 3 {
		t.Fatalf("last message = %+v, want seq 3", sum.LastMessage)
	}
	if sum.UnreadCount != 2 {
		t.Fatalf("unread = %d, want 2", sum.UnreadCount)
	}
	if _, err := Summary(conv.ID, "coord"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-participant summary: want ErrForbidden, got %v", err)
	}
}

func TestTypingExpiry(t *testing.T) {
	setup(t)
	conv := mustCreate(t, "rec", "mgr")

	base := time.Now()
	now = func() time.Time { return base }
	t.Cleanup(func() { now = time.Now })
	SetTypingTTL(5 * time.Second)

	if err := SetTyping(conv.ID, "rec", true); err != nil {
		t.Fatalf("set typing: %v", err)
	}
	if users := TypingUsers(conv.ID); len(users) != 1 {
		t.Fatalf("typing users = %v, want rec", users)
	}

	now = func() time.Time { return base.Add(6 * time.Second) }
	if users := TypingUsers(conv.ID); len(users) != 0 {
		t.Fatalf("typing signal should expire, got %v", users)
	}
}

func TestTypingClearAndMembership(t *testing.T) {
	setup(t)
	conv := mustCreate(t, "rec")
	if err := SetTyping(conv.ID, "mgr", true); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-participant typing: want ErrForbidden, got %v", err)
	}
	if err := SetTyping(conv.ID, "rec", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := SetTyping(conv.ID, "rec", false); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if users := TypingUsers(conv.ID); len(users) != 0 {
		t.Fatalf("typing not cleared: %v", users)
	}
}

func TestListOrderingAndArchiveFilter(t *testing.T) {
	setup(t)
	first := mustCreate(t, "rec", "mgr")
	second := mustCreate(t, "rec")

	// an append bumps UpdatedTS, promoting the conversation
	time.Sleep(2 * time.Millisecond)
	if _, err := ledger.Append(first.ID, ledger.AppendInput{SenderID: "rec", Content: "bump"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	convs, err := List("rec", false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 || convs[0].ID != first.ID {
		t.Fatalf("ordering wrong: %v", ids(convs))
	}

	if _, err := Archive(second.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	convs, err = List("rec", false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != first.ID {
		t.Fatalf("archived conversation should be hidden: %v", ids(convs))
	}
	convs, err = List("rec", true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("include_archived should list both, got %v", ids(convs))
	}

	// mgr only participates in the first conversation
	convs, err = List("mgr", true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != first.ID {
		t.Fatalf("membership filter wrong: %v", ids(convs))
	}
}

func TestArchivedConversationStillAcceptsWrites(t *testing.T) {
	setup(t)
	conv := mustCreate(t, "rec")
	if _, err := Archive(conv.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := ledger.Append(conv.ID, ledger.AppendInput{SenderID: "rec", Content: "still open"}); err != nil {
		t.Fatalf("append to archived: %v", err)
	}
	restored, err := Archive(conv.ID, false)
	if err != nil {
		t.Fatalf("unarchive: %v", err)
	}
	if restored.Archived || restored.ArchivedTS != 0 {
		t.Fatalf("unarchive did not reset flags: %+v", restored)
	}
}

func ids(convs []*models.Conversation) []string {
	out := make([]string, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.ID)
	}
	return out
}
