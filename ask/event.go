package ask

import (
	"encoding/json"
	"io"
	"sync"
)

// Event types written to the answer stream.
const (
	EventText  = "text"
	EventImage = "image"
	EventFile  = "file"
	EventError = "error"
)

// Event is one line of the newline-delimited JSON answer stream.
type Event struct {
	Type       string `json:"type"`
	Content    string `json:"content,omitempty"`
	DocID      string `json:"doc_id,omitempty"`
	MIME       string `json:"mime,omitempty"`
	Size       int    `json:"size,omitempty"`
	Filename   string `json:"filename,omitempty"`
	URL        string `json:"url,omitempty"`
	ContentB64 string `json:"content_b64,omitempty"`
}

// EventWriter receives answer stream events in order.
type EventWriter interface {
	WriteEvent(Event) error
}

type flusher interface {
	Flush()
}

// NDJSONWriter writes events as newline-delimited JSON, flushing after
// each event when the underlying writer supports it.
type NDJSONWriter struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

// NewNDJSONWriter returns an NDJSONWriter over w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONWriter{w: w, enc: enc}
}

// WriteEvent encodes e as one line.
func (n *NDJSONWriter) WriteEvent(e Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.enc.Encode(e); err != nil {
		return err
	}
	if f, ok := n.w.(flusher); ok {
		f.Flush()
	}
	return nil
}

// EventWriterFunc adapts a function to EventWriter.
type EventWriterFunc func(Event) error

// WriteEvent calls f(e).
func (f EventWriterFunc) WriteEvent(e Event) error {
	return f(e)
}
