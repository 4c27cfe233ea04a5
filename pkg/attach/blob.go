package attach

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists attachment bytes addressed by attachment ID.
type BlobStore interface {
	Put(id string, r io.Reader) (int64, error)
	Open(id string) (io.ReadCloser, error)
	Delete(id string) error
}

// DirStore is a BlobStore backed by a flat directory, one file per
// attachment ID.
type DirStore struct {
	root string
}

// NewDirStore creates the directory if needed and returns a store over
// it.
func NewDirStore(root string) (*DirStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("attach: empty blob dir")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DirStore{root: root}, nil
}

func (s *DirStore) path(id string) (string, error) {
	// Attachment IDs are generated UUIDs; reject anything path-like.
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("attach: invalid blob id %q", id)
	}
	return filepath.Join(s.root, id), nil
}

func (s *DirStore) Put(id string, r io.Reader) (int64, error) {
	p, err := s.path(id)
	if err != nil {
		return 0, err
	}
	tmp := p + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return n, nil
}

func (s *DirStore) Open(id string) (io.ReadCloser, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *DirStore) Delete(id string) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
