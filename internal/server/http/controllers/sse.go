package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	totalsvc "github.com/rzbill/tally/internal/services/totals"
)

// sseSink writes watched events as Server-Sent Events, one "id:"/"data:"
// frame per event, flushed immediately.
type sseSink struct {
	w http.ResponseWriter
}

func (s sseSink) Send(ev totalsvc.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "id: %d\ndata: %s\n\n", ev.Seq, b); err != nil {
		return err
	}
	s.Flush()
	return nil
}

// Flush pushes buffered frames to the client when the writer supports it.
func (s sseSink) Flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}
