package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"hiretalk/pkg/auth"
	"hiretalk/pkg/ledger"
	"hiretalk/pkg/utils"
)

// RegisterReactions registers the per-message reaction routes.
func RegisterReactions(r *mux.Router) {
	r.HandleFunc("/conversations/{id}/messages/{msgID}/reactions", addReaction).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/messages/{msgID}/reactions/{emoji}", removeReaction).Methods(http.MethodDelete)
}

type reactionReq struct {
	User  string `json:"user"`
	Emoji string `json:"emoji"`
}

func addReaction(w http.ResponseWriter, r *http.Request) {
	var req reactionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	user, status, msg := auth.ResolveUserFromRequest(r, req.User)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	vars := mux.Vars(r)
	m, err := ledger.React(vars["id"], vars["msgID"], user, req.Emoji)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, m)
}

func removeReaction(w http.ResponseWriter, r *http.Request) {
	user, status, msg := auth.ResolveUserFromRequest(r, "")
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	vars := mux.Vars(r)
	m, err := ledger.Unreact(vars["id"], vars["msgID"], user, vars["emoji"])
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, m)
}
