package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"hiretalk/pkg/identity"
	"hiretalk/pkg/models"
	"hiretalk/pkg/utils"
)

// RegisterUsers registers user directory administration. The gateway
// scopes these routes to backend and admin keys.
func RegisterUsers(r *mux.Router) {
	r.HandleFunc("/users", upsertUser).Methods(http.MethodPost)
	r.HandleFunc("/users", listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", getUser).Methods(http.MethodGet)
}

func upsertUser(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := identity.Upsert(&u); err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, u)
}

func listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := identity.List()
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"users": users})
}

func getUser(w http.ResponseWriter, r *http.Request) {
	u, err := identity.Resolve(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, u)
}
