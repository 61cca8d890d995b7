package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type flusher interface {
	Flush()
}

// Writer encodes fragments as SSE frames and flushes after each one.
type Writer struct {
	w       io.Writer
	flusher flusher
	done    bool
}

func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(flusher); ok {
		sw.flusher = f
	}
	return sw
}

// SetHeaders prepares an HTTP response for streaming.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set(ProtocolHeader, ProtocolVersion)
}

func (sw *Writer) Send(f Fragment) error {
	if sw.done {
		return fmt.Errorf("stream already closed")
	}
	if err := f.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	return sw.frame(payload)
}

// Done writes the completion marker. Nothing may be sent afterwards.
func (sw *Writer) Done() error {
	if sw.done {
		return nil
	}
	if err := sw.frame([]byte(doneMarker)); err != nil {
		return err
	}
	sw.done = true
	return nil
}

func (sw *Writer) frame(payload []byte) error {
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}
