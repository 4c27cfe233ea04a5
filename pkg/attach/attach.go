// Package attach validates and registers attachment references carried
// on messages. Blob bytes live outside the ledger; only descriptors are
// stored inline.
package attach

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/models"
)

var allowedKinds = map[string]struct{}{
	models.AttachmentDocument: {},
	models.AttachmentImage:    {},
	models.AttachmentVideo:    {},
	models.AttachmentAudio:    {},
}

// Input describes an attachment being registered.
type Input struct {
	Name string
	Kind string
	Size int64
	URL  string
}

// Register validates in and returns a descriptor with a fresh ID and
// upload timestamp. The declared size is trusted as reported by the
// caller.
func Register(in Input, maxSize int64) (*models.MessageAttachment, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: attachment name required", apperr.ErrInvalidArgument)
	}
	if _, ok := allowedKinds[in.Kind]; !ok {
		return nil, fmt.Errorf("%w: attachment kind %q", apperr.ErrUnsupportedType, in.Kind)
	}
	if in.Size < 0 {
		return nil, fmt.Errorf("%w: negative attachment size", apperr.ErrInvalidArgument)
	}
	if maxSize > 0 && in.Size > maxSize {
		return nil, fmt.Errorf("%w: attachment size %d exceeds limit %d", apperr.ErrInvalidArgument, in.Size, maxSize)
	}
	return &models.MessageAttachment{
		ID:         uuid.NewString(),
		Name:       name,
		Kind:       in.Kind,
		Size:       in.Size,
		URL:        strings.TrimSpace(in.URL),
		UploadedTS: time.Now().UnixMilli(),
	}, nil
}

// RegisterAll validates a batch, failing on the first bad entry so a
// message either carries all its attachments or none.
func RegisterAll(ins []Input, maxSize int64) ([]models.MessageAttachment, error) {
	if len(ins) == 0 {
		return nil, nil
	}
	out := make([]models.MessageAttachment, 0, len(ins))
	for _, in := range ins {
		a, err := Register(in, maxSize)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}
