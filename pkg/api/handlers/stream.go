package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"hiretalk/pkg/directory"
	"hiretalk/pkg/utils"
)

// RegisterStream registers the live event stream.
func RegisterStream(r *mux.Router) {
	r.HandleFunc("/conversations/{id}/events", streamEvents).Methods(http.MethodGet)
}

// streamEvents serves conversation events as server-sent events until
// the client disconnects.
func streamEvents(w http.ResponseWriter, r *http.Request) {
	if bus == nil {
		utils.JSONError(w, http.StatusNotImplemented, "event bus not configured")
		return
	}
	convID := mux.Vars(r)["id"]
	if _, err := directory.Get(convID); err != nil {
		writeErr(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.JSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, cancel := bus.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			if ev.Conversation != convID {
				continue
			}
			fmt.Fprintf(w, "event: %s\n", ev.Type)
			fmt.Fprintf(w, "data: %s\n\n", ev.Payload)
			flusher.Flush()
		}
	}
}
