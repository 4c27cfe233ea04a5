package archive

import (
	"context"
	"testing"
	"time"

	"hiretalk/pkg/config"
	"hiretalk/pkg/directory"
	"hiretalk/pkg/identity"
	"hiretalk/pkg/models"
	"hiretalk/pkg/store"
)

func seedConversations(t *testing.T) (fresh, stale string) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := identity.Upsert(&models.User{ID: "rec-1", Name: "Dana"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	mk := func(candidate string) string {
		conv, err := directory.Create(directory.CreateInput{
			CandidateID:    candidate,
			ParticipantIDs: []string{"rec-1"},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return conv.ID
	}
	fresh = mk("cand-fresh")
	stale = mk("cand-stale")

	// age the stale conversation by rewriting its meta record
	conv, err := store.GetConversation(stale)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	conv.UpdatedTS = time.Now().Add(-48 * time.Hour).UnixMilli()
	if err := store.PutConversation(conv); err != nil {
		t.Fatalf("put: %v", err)
	}
	return fresh, stale
}

func TestRunOnceArchivesOnlyIdle(t *testing.T) {
	fresh, stale := seedConversations(t)

	n, err := RunOnce(24*time.Hour, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("archived = %d, want 1", n)
	}
	c, err := store.GetConversation(stale)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if !c.Archived {
		t.Fatalf("stale conversation not archived")
	}
	c, err = store.GetConversation(fresh)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if c.Archived {
		t.Fatalf("fresh conversation archived")
	}

	// a second sweep finds nothing new
	n, err = RunOnce(24*time.Hour, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sweep archived %d", n)
	}
}

func TestRunOnceDryRun(t *testing.T) {
	_, stale := seedConversations(t)

	n, err := RunOnce(24*time.Hour, true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("would-archive = %d, want 1", n)
	}
	c, err := store.GetConversation(stale)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Archived {
		t.Fatalf("dry run mutated the conversation")
	}
}

func TestStartValidatesCron(t *testing.T) {
	cancel, err := Start(context.Background(), config.ArchiveConfig{Enabled: true, Cron: "not a cron"})
	if err == nil {
		cancel()
		t.Fatalf("expected error for bad cron expression")
	}

	cancel, err = Start(context.Background(), config.ArchiveConfig{})
	if err != nil {
		t.Fatalf("disabled start: %v", err)
	}
	cancel()
}
