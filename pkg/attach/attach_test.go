package attach

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/models"
)

func TestRegisterValidation(t *testing.T) {
	if _, err := Register(Input{Name: "", Kind: models.AttachmentDocument}, 0); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("empty name: want ErrInvalidArgument, got %v", err)
	}
	if _, err := Register(Input{Name: "x.exe", Kind: "executable"}, 0); !errors.Is(err, apperr.ErrUnsupportedType) {
		t.Fatalf("bad kind: want ErrUnsupportedType, got %v", err)
	}
	if _, err := Register(Input{Name: "x.pdf", Kind: models.AttachmentDocument, Size: -1}, 0); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("negative size: want ErrInvalidArgument, got %v", err)
	}
	if _, err := Register(Input{Name: "x.pdf", Kind: models.AttachmentDocument, Size: 100}, 50); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("oversize: want ErrInvalidArgument, got %v", err)
	}
}

func TestRegisterAssignsIDAndTimestamp(t *testing.T) {
	a, err := Register(Input{Name: " resume.pdf ", Kind: models.AttachmentDocument, Size: 1024, URL: "https://cdn/x"}, 0)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if a.ID == "" || a.UploadedTS == 0 {
		t.Fatalf("missing id or timestamp: %+v", a)
	}
	if a.Name != "resume.pdf" {
		t.Fatalf("name not trimmed: %q", a.Name)
	}
	b, err := Register(Input{Name: "resume.pdf", Kind: models.AttachmentDocument}, 0)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("ids collide")
	}
}

func TestRegisterAllFailsAtomically(t *testing.T) {
	out, err := RegisterAll([]Input{
		{Name: "ok.png", Kind: models.AttachmentImage},
		{Name: "bad.bin", Kind: "binary"},
	}, 0)
	if !errors.Is(err, apperr.ErrUnsupportedType) {
		t.Fatalf("want ErrUnsupportedType, got %v", err)
	}
	if out != nil {
		t.Fatalf("batch should be all-or-nothing, got %v", out)
	}
}

func TestDirStoreRoundTrip(t *testing.T) {
	ds, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	payload := []byte("attachment bytes")
	n, err := ds.Put("blob-1", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if n != int64(len(payload)) {
		t.Fatalf("wrote %d bytes, want %d", n, len(payload))
	}
	rc, err := ds.Open("blob-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("read back %q err=%v", got, err)
	}
	if err := ds.Delete("blob-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := ds.Delete("blob-1"); err != nil {
		t.Fatalf("delete missing should be nil, got %v", err)
	}
}

func TestDirStoreRejectsPathLikeIDs(t *testing.T) {
	ds, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		if _, err := ds.Put(id, bytes.NewReader(nil)); err == nil {
			t.Fatalf("id %q should be rejected", id)
		}
	}
}
