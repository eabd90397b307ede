package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// handleLogStream handles GET /api/logs/stream as server-sent events.
// The buffered lines are sent first, then every new line as it arrives.
// A client that falls behind the ring buffer silently skips lines.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	var cursor uint64
	for {
		// Wait must be taken before Since so that no Append is missed.
		changed := s.tail.Wait()

		var lines []string
		lines, cursor = s.tail.Since(cursor)
		for _, line := range lines {
			if err := writeEvent(w, line); err != nil {
				return
			}
		}
		if len(lines) > 0 {
			flusher.Flush()
		}

		select {
		case <-r.Context().Done():
			return
		case <-changed:
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE event. Multi-line text becomes several data
// fields of the same event.
func writeEvent(w http.ResponseWriter, text string) error {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	_, err := fmt.Fprint(w, b.String())
	return err
}
