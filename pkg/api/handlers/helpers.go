package handlers

import (
	"errors"
	"net/http"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/attach"
	"hiretalk/pkg/fanout"
	"hiretalk/pkg/logger"
	"hiretalk/pkg/utils"
)

// Package-wide handler dependencies, installed once at startup.
var (
	blobs         attach.BlobStore
	bus           *fanout.Bus
	maxAttachSize int64
)

// SetBlobStore installs the attachment blob backend.
func SetBlobStore(s attach.BlobStore) { blobs = s }

// SetBus installs the event bus used by the stream endpoint.
func SetBus(b *fanout.Bus) { bus = b }

// SetMaxAttachmentSize bounds the declared size of registered
// attachments. Zero means unlimited.
func SetMaxAttachmentSize(n int64) { maxAttachSize = n }

// writeErr maps domain errors onto HTTP statuses. Unrecognized errors
// become 500s and are logged; their text is not leaked to the client.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		utils.JSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrInvalidReference):
		utils.JSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperr.ErrInvalidArgument):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrUnsupportedType):
		utils.JSONError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		utils.JSONError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("handler_error", "error", err.Error())
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
	}
}
