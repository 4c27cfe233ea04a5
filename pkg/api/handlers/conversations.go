package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"hiretalk/pkg/auth"
	"hiretalk/pkg/directory"
	"hiretalk/pkg/utils"
)

// RegisterConversations registers the conversation collection and
// membership routes.
func RegisterConversations(r *mux.Router) {
	r.HandleFunc("/conversations", createConversation).Methods(http.MethodPost)
	r.HandleFunc("/conversations", listConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}", getConversation).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/archive", setArchived).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/participants", addParticipant).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/participants/{userID}", removeParticipant).Methods(http.MethodDelete)
}

type createConversationReq struct {
	CandidateID       string   `json:"candidate_id"`
	CandidateName     string   `json:"candidate_name"`
	CandidatePosition string   `json:"candidate_position"`
	Participants      []string `json:"participants"`
	Priority          string   `json:"priority"`
	Tags              []string `json:"tags"`
}

func createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	conv, err := directory.Create(directory.CreateInput{
		CandidateID:       req.CandidateID,
		CandidateName:     req.CandidateName,
		CandidatePosition: req.CandidatePosition,
		ParticipantIDs:    req.Participants,
		Priority:          req.Priority,
		Tags:              req.Tags,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusCreated, conv)
}

func listConversations(w http.ResponseWriter, r *http.Request) {
	userID, status, msg := auth.ResolveUserFromRequest(r, "")
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("include_archived"))
	convs, err := directory.List(userID, includeArchived)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"conversations": convs})
}

func getConversation(w http.ResponseWriter, r *http.Request) {
	userID, status, msg := auth.ResolveUserFromRequest(r, "")
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	conv, err := directory.Summary(mux.Vars(r)["id"], userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, conv)
}

type setArchivedReq struct {
	Archived bool `json:"archived"`
}

func setArchived(w http.ResponseWriter, r *http.Request) {
	var req setArchivedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	conv, err := directory.Archive(mux.Vars(r)["id"], req.Archived)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, conv)
}

type participantReq struct {
	UserID string `json:"user_id"`
}

func addParticipant(w http.ResponseWriter, r *http.Request) {
	var req participantReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	conv, err := directory.AddParticipant(mux.Vars(r)["id"], req.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, conv)
}

func removeParticipant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conv, err := directory.RemoveParticipant(vars["id"], vars["userID"])
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, conv)
}
