package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"hiretalk/pkg/auth"
	"hiretalk/pkg/directory"
	"hiretalk/pkg/utils"
)

// RegisterTyping registers the typing indicator routes.
func RegisterTyping(r *mux.Router) {
	r.HandleFunc("/conversations/{id}/typing", setTyping).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/typing", getTyping).Methods(http.MethodGet)
}

type typingReq struct {
	User   string `json:"user"`
	Typing bool   `json:"typing"`
}

func setTyping(w http.ResponseWriter, r *http.Request) {
	var req typingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	user, status, msg := auth.ResolveUserFromRequest(r, req.User)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	if err := directory.SetTyping(mux.Vars(r)["id"], user, req.Typing); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func getTyping(w http.ResponseWriter, r *http.Request) {
	convID := mux.Vars(r)["id"]
	if _, err := directory.Get(convID); err != nil {
		writeErr(w, err)
		return
	}
	set := directory.TypingUsers(convID)
	users := make([]string, 0, len(set))
	for u := range set {
		users = append(users, u)
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"typing": users})
}
