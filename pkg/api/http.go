// Package api assembles the versioned HTTP surface.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"hiretalk/pkg/api/handlers"
	"hiretalk/pkg/auth"
)

// Handler returns the /v1 API handler with all route groups registered
// and caller-identity verification applied.
func Handler() http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()

	handlers.RegisterConversations(v1)
	handlers.RegisterMessages(v1)
	handlers.RegisterReactions(v1)
	handlers.RegisterRead(v1)
	handlers.RegisterTyping(v1)
	handlers.RegisterAttachments(v1)
	handlers.RegisterNotifications(v1)
	handlers.RegisterUsers(v1)
	handlers.RegisterStream(v1)

	return auth.RequireSignedUser(r)
}
