package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"livepoll/internal/metrics"
	"livepoll/internal/platform/apperr"
)

const heartbeatInterval = 25 * time.Second

// handleEvents streams voteUpdate events for one poll over SSE. A viewer
// subscribes on connect and leaves the room when the connection drops.
// Delivery is best-effort; the vote path never waits on this stream.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "id")
	if _, err := h.pollSvc.Get(r.Context(), pollID); err != nil {
		errorResponse(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		errorResponse(w, apperr.Internal("streaming_unsupported", "streaming unsupported", nil))
		return
	}

	sub, cancel := h.hub.Subscribe(pollID)
	defer cancel()

	metrics.ViewerConnected()
	defer metrics.ViewerDisconnected()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-sub:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: voteUpdate\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
