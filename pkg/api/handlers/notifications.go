package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"hiretalk/pkg/auth"
	"hiretalk/pkg/notify"
	"hiretalk/pkg/utils"
)

// RegisterNotifications registers the per-user notification feed.
func RegisterNotifications(r *mux.Router) {
	r.HandleFunc("/notifications", listNotifications).Methods(http.MethodGet)
	r.HandleFunc("/notifications/seen", markAllNotificationsSeen).Methods(http.MethodPost)
	r.HandleFunc("/notifications/{id}/seen", markNotificationSeen).Methods(http.MethodPost)
}

func listNotifications(w http.ResponseWriter, r *http.Request) {
	user, status, msg := auth.ResolveUserFromRequest(r, "")
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	unseenOnly, _ := strconv.ParseBool(q.Get("unseen"))
	recs, err := notify.List(user, limit, unseenOnly)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"notifications": recs})
}

func markNotificationSeen(w http.ResponseWriter, r *http.Request) {
	user, status, msg := auth.ResolveUserFromRequest(r, "")
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	rec, err := notify.MarkSeen(user, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, rec)
}

func markAllNotificationsSeen(w http.ResponseWriter, r *http.Request) {
	user, status, msg := auth.ResolveUserFromRequest(r, "")
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	n, err := notify.MarkAllSeen(user)
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"updated": n})
}
