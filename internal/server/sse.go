package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonathan/jobprep/internal/workflow"
)

// eventStream writes a batch run's progress feed as Server-Sent Events.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newEventStream prepares the response for streaming. Fails when the
// underlying writer cannot flush.
func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	return &eventStream{w: w, flusher: flusher}, nil
}

// progress forwards one orchestrator event, named by its type.
func (s *eventStream) progress(event workflow.ProgressEvent) error {
	return s.send(event.Type, event)
}

// result delivers the aggregate batch result followed by the completion
// marker. This pair always closes a successful stream, even when progress
// events were dropped under backpressure.
func (s *eventStream) result(result *workflow.BatchResult) {
	if err := s.send("result", result); err != nil {
		return
	}
	s.send("complete", map[string]string{ //nolint:errcheck
		"request_id": result.RequestID,
		"status":     string(result.OverallStatus),
	})
}

// fail reports a batch run that produced no result.
func (s *eventStream) fail(message string) {
	s.send("error", map[string]string{"error": message}) //nolint:errcheck
}

func (s *eventStream) send(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
