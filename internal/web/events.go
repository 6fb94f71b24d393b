package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const keepaliveInterval = 30 * time.Second

// playEvents streams playtest events as Server-Sent Events until the
// client goes away.
func (s *Server) playEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ch, cancel, err := s.opts.Events.Subscribe(ctx, s.opts.SessionID)
	if err != nil {
		s.logger.Error("Failed to subscribe to playtest events", "error", err)
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	s.logger.Info("SSE connection established", "remote_addr", r.RemoteAddr)
	s.sendSSE(w, "connected", map[string]any{
		"session_id": s.opts.SessionID,
		"message":    "Connected to event stream",
	})

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SSE client disconnected")
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			s.sendSSE(w, string(e.Type), e.Data)
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				s.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flush(w)
		}
	}
}

func (s *Server) sendSSE(w http.ResponseWriter, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		s.logger.Error("Failed to write event", "error", err)
		return
	}
	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
