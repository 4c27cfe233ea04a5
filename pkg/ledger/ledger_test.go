package ledger_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/directory"
	"hiretalk/pkg/identity"
	"hiretalk/pkg/ledger"
	"hiretalk/pkg/models"
	"hiretalk/pkg/readstate"
	"hiretalk/pkg/store"
)

func setup(t *testing.T) string {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	for _, u := range []*models.User{
		{ID: "rec1", Name: "Dana Recruiter", Role: "recruiter"},
		{ID: "mgr1", Name: "Sam Manager", Role: "hiring-manager"},
		{ID: "coord1", Name: "Ira Coordinator", Role: "coordinator"},
	} {
		if err := identity.Upsert(u); err != nil {
			t.Fatalf("upsert %s: %v", u.ID, err)
		}
	}
	conv, err := directory.Create(directory.CreateInput{
		CandidateID:    "cand-1",
		CandidateName:  "Alex Doe",
		ParticipantIDs: []string{"rec1", "mgr1"},
	})
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return conv.ID
}

func TestAppendAssignsSequentialSeqs(t *testing.T) {
	convID := setup(t)
	for want := uint64(1); want <= 3; want++ {
		m, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: fmt.Sprintf("msg %d", want)})
		if err != nil {
			t.Fatalf("append %d: %v", want, err)
		}
		if m.Seq != want {
			t.Fatalf("seq = %d, want %d", m.Seq, want)
		}
		if m.SenderName != "Dana Recruiter" || m.SenderRole != "recruiter" {
			t.Fatalf("sender snapshot missing: %+v", m)
		}
	}
	conv, err := directory.Get(convID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if conv.LastSeq != 3 {
		t.Fatalf("LastSeq = %d, want 3", conv.LastSeq)
	}
}

func TestConcurrentAppendsAreGapless(t *testing.T) {
	convID := setup(t)
	const workers = 4
	const perWorker = 25
	var wg sync.WaitGroup
	errCh := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			sender := "rec1"
			if w%2 == 1 {
				sender = "mgr1"
			}
			for i := 0; i < perWorker; i++ {
				if _, err := ledger.Append(convID, ledger.AppendInput{SenderID: sender, Content: "c"}); err != nil {
					errCh <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("append: %v", err)
	}

	page, err := ledger.ListSince(convID, 0, 1000, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Messages) != workers*perWorker {
		t.Fatalf("got %d messages, want %d", len(page.Messages), workers*perWorker)
	}
	for i, m := range page.Messages {
		if m.Seq != uint64(i+1) {
			t.Fatalf("gap at index %d: seq %d", i, m.Seq)
		}
	}
}

func TestAppendRejectsNonParticipant(t *testing.T) {
	convID := setup(t)
	_, err := ledger.Append(convID, ledger.AppendInput{SenderID: "coord1", Content: "hi"})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestAppendUnknownConversation(t *testing.T) {
	setup(t)
	_, err := ledger.Append("conv-nope", ledger.AppendInput{SenderID: "rec1", Content: "hi"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAppendEmptyMessage(t *testing.T) {
	convID := setup(t)
	_, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: "  "})
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestReplyToValidation(t *testing.T) {
	convID := setup(t)
	first, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: "first"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	reply, err := ledger.Append(convID, ledger.AppendInput{SenderID: "mgr1", Content: "reply", ReplyTo: first.ID})
	if err != nil {
		t.Fatalf("reply append: %v", err)
	}
	if reply.ReplyTo != first.ID {
		t.Fatalf("ReplyTo = %q, want %q", reply.ReplyTo, first.ID)
	}
	_, err = ledger.Append(convID, ledger.AppendInput{SenderID: "mgr1", Content: "bad", ReplyTo: "msg-missing"})
	if !errors.Is(err, apperr.ErrInvalidReference) {
		t.Fatalf("want ErrInvalidReference, got %v", err)
	}
}

func TestEditOnlyBySender(t *testing.T) {
	convID := setup(t)
	m, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: "original"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := ledger.Edit(convID, m.ID, "mgr1", "hijacked"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("want ErrForbidden for non-sender edit, got %v", err)
	}
	edited, err := ledger.Edit(convID, m.ID, "rec1", "updated")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !edited.Edited || edited.Content != "updated" || edited.EditedTS == 0 {
		t.Fatalf("edit not applied: %+v", edited)
	}
	versions, err := ledger.Versions(m.ID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 1 || versions[0].Content != "original" {
		t.Fatalf("prior version not retained: %+v", versions)
	}
}

func TestReactionsIdempotent(t *testing.T) {
	convID := setup(t)
	m, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: "react to me"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := ledger.React(convID, m.ID, "mgr1", "👍"); err != nil {
			t.Fatalf("react %d: %v", i, err)
		}
	}
	got, err := ledger.GetMessage(convID, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if users := got.Reactions["👍"]; len(users) != 1 || users[0] != "mgr1" {
		t.Fatalf("reactions = %v, want single mgr1", got.Reactions)
	}
	for i := 0; i < 2; i++ {
		if _, err := ledger.Unreact(convID, m.ID, "mgr1", "👍"); err != nil {
			t.Fatalf("unreact %d: %v", i, err)
		}
	}
	got, err = ledger.GetMessage(convID, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Reactions) != 0 {
		t.Fatalf("reactions not cleared: %v", got.Reactions)
	}
}

func TestReactionRequiresParticipant(t *testing.T) {
	convID := setup(t)
	m, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: "msg"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := ledger.React(convID, m.ID, "coord1", "🎉"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestListSinceCursorPagination(t *testing.T) {
	convID := setup(t)
	for i := 0; i < 10; i++ {
		if _, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	var all []*models.Message
	cursor := ""
	pages := 0
	for {
		page, err := ledger.ListSince(convID, 0, 4, cursor)
		if err != nil {
			t.Fatalf("list page %d: %v", pages, err)
		}
		all = append(all, page.Messages...)
		pages++
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	if pages != 3 || len(all) != 10 {
		t.Fatalf("pages=%d total=%d, want 3 pages of 10 total", pages, len(all))
	}
	for i, m := range all {
		if m.Seq != uint64(i+1) {
			t.Fatalf("out of order at %d: seq %d", i, m.Seq)
		}
	}
}

func TestListSinceSkipsEarlierSeqs(t *testing.T) {
	convID := setup(t)
	for i := 0; i < 5; i++ {
		if _, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: "m"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	page, err := ledger.ListSince(convID, 3, 0, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Messages) != 2 || page.Messages[0].Seq != 4 {
		t.Fatalf("since=3 returned %d messages starting at %d", len(page.Messages), page.Messages[0].Seq)
	}
}

func TestCursorRejectedForOtherConversation(t *testing.T) {
	convID := setup(t)
	if _, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: "m"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	cur := ledger.EncodeCursor("conv-other", 1)
	if _, err := ledger.ListSince(convID, 0, 0, cur); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestSenderSnapshotSurvivesRename(t *testing.T) {
	convID := setup(t)
	if _, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: "before rename"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := identity.Upsert(&models.User{ID: "rec1", Name: "Dana Renamed", Role: "recruiter"}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	page, err := ledger.ListSince(convID, 0, 0, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Messages[0].SenderName != "Dana Recruiter" {
		t.Fatalf("snapshot refreshed: %q", page.Messages[0].SenderName)
	}
}

func TestReadByDerivedFromMarkers(t *testing.T) {
	convID := setup(t)
	for i := 0; i < 3; i++ {
		if _, err := ledger.Append(convID, ledger.AppendInput{SenderID: "rec1", Content: "m"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := readstate.MarkRead(convID, "mgr1", 2); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	page, err := ledger.ListSince(convID, 0, 0, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, m := range page.Messages {
		switch {
		case m.Seq <= 2:
			if len(m.ReadBy) != 1 || m.ReadBy[0].UserID != "mgr1" {
				t.Fatalf("seq %d ReadBy = %+v, want mgr1", m.Seq, m.ReadBy)
			}
		default:
			if len(m.ReadBy) != 0 {
				t.Fatalf("seq %d should be unread, got %+v", m.Seq, m.ReadBy)
			}
		}
	}
}
