package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"hiretalk/pkg/attach"
	"hiretalk/pkg/auth"
	"hiretalk/pkg/ledger"
	"hiretalk/pkg/models"
	"hiretalk/pkg/telemetry"
	"hiretalk/pkg/utils"
)

// RegisterMessages registers the message ledger routes.
func RegisterMessages(r *mux.Router) {
	r.HandleFunc("/conversations/{id}/messages", appendMessage).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/messages", listMessages).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/messages/{msgID}", getMessage).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/messages/{msgID}", editMessage).Methods(http.MethodPut)
	r.HandleFunc("/conversations/{id}/messages/{msgID}/versions", listVersions).Methods(http.MethodGet)
}

type attachmentReq struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

type appendMessageReq struct {
	Sender      string          `json:"sender"`
	Content     string          `json:"content"`
	Priority    string          `json:"priority"`
	ReplyTo     string          `json:"reply_to"`
	Attachments []attachmentReq `json:"attachments"`
}

func appendMessage(w http.ResponseWriter, r *http.Request) {
	var req appendMessageReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sender, status, msg := auth.ResolveUserFromRequest(r, req.Sender)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}

	var atts []models.MessageAttachment
	if len(req.Attachments) > 0 {
		ins := make([]attach.Input, 0, len(req.Attachments))
		for _, a := range req.Attachments {
			ins = append(ins, attach.Input{Name: a.Name, Kind: a.Kind, Size: a.Size, URL: a.URL})
		}
		var err error
		atts, err = attach.RegisterAll(ins, maxAttachSize)
		if err != nil {
			writeErr(w, err)
			return
		}
	}

	end := telemetry.StartSpan(r.Context(), "ledger.append")
	m, err := ledger.Append(mux.Vars(r)["id"], ledger.AppendInput{
		SenderID:    sender,
		Content:     req.Content,
		Priority:    req.Priority,
		ReplyTo:     req.ReplyTo,
		Attachments: atts,
	})
	end()
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusCreated, m)
}

func listMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var since uint64
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid since")
			return
		}
		since = n
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	page, err := ledger.ListSince(mux.Vars(r)["id"], since, limit, q.Get("cursor"))
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, page)
}

func getMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	m, err := ledger.GetMessage(vars["id"], vars["msgID"])
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, m)
}

type editMessageReq struct {
	Editor  string `json:"editor"`
	Content string `json:"content"`
}

func editMessage(w http.ResponseWriter, r *http.Request) {
	var req editMessageReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	editor, status, msg := auth.ResolveUserFromRequest(r, req.Editor)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	vars := mux.Vars(r)
	m, err := ledger.Edit(vars["id"], vars["msgID"], editor, req.Content)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, m)
}

func listVersions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	// ensure the message exists before listing history
	if _, err := ledger.GetMessage(vars["id"], vars["msgID"]); err != nil {
		writeErr(w, err)
		return
	}
	versions, err := ledger.Versions(vars["msgID"])
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"versions": versions})
}
