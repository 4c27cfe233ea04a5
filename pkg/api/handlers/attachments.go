package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"hiretalk/pkg/attach"
	"hiretalk/pkg/utils"
)

// RegisterAttachments registers descriptor registration plus blob upload
// and download.
func RegisterAttachments(r *mux.Router) {
	r.HandleFunc("/attachments", registerAttachment).Methods(http.MethodPost)
	r.HandleFunc("/attachments/{id}/blob", uploadBlob).Methods(http.MethodPut)
	r.HandleFunc("/attachments/{id}/blob", downloadBlob).Methods(http.MethodGet)
}

func registerAttachment(w http.ResponseWriter, r *http.Request) {
	var req attachmentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	a, err := attach.Register(attach.Input{Name: req.Name, Kind: req.Kind, Size: req.Size, URL: req.URL}, maxAttachSize)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusCreated, a)
}

func uploadBlob(w http.ResponseWriter, r *http.Request) {
	if blobs == nil {
		utils.JSONError(w, http.StatusNotImplemented, "blob storage not configured")
		return
	}
	var body io.Reader = r.Body
	if maxAttachSize > 0 {
		body = http.MaxBytesReader(w, r.Body, maxAttachSize)
	}
	n, err := blobs.Put(mux.Vars(r)["id"], body)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"size": n})
}

func downloadBlob(w http.ResponseWriter, r *http.Request) {
	if blobs == nil {
		utils.JSONError(w, http.StatusNotImplemented, "blob storage not configured")
		return
	}
	rc, err := blobs.Open(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "blob not found")
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = io.Copy(w, rc)
}
