package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"hiretalk/pkg/auth"
	"hiretalk/pkg/directory"
	"hiretalk/pkg/readstate"
	"hiretalk/pkg/utils"
)

// RegisterRead registers the read-state routes.
func RegisterRead(r *mux.Router) {
	r.HandleFunc("/conversations/{id}/read", markRead).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/read", getRead).Methods(http.MethodGet)
}

type markReadReq struct {
	User string `json:"user"`
	Seq  uint64 `json:"seq"`
}

func markRead(w http.ResponseWriter, r *http.Request) {
	var req markReadReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	user, status, msg := auth.ResolveUserFromRequest(r, req.User)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	mk, err := readstate.MarkRead(mux.Vars(r)["id"], user, req.Seq)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, mk)
}

func getRead(w http.ResponseWriter, r *http.Request) {
	user, status, msg := auth.ResolveUserFromRequest(r, "")
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	convID := mux.Vars(r)["id"]
	mk, err := readstate.LastRead(convID, user)
	if err != nil {
		writeErr(w, err)
		return
	}
	conv, err := directory.Get(convID)
	if err != nil {
		writeErr(w, err)
		return
	}
	unread, err := readstate.UnreadCount(conv, user)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"marker": mk, "unread": unread})
}
