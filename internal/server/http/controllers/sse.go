package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kyled7/queue-vision/internal/broker"
)

// sseSink implements the events Sink interface for Server-Sent Events.
//
// Events are JSON-encoded and sent with the "data: " prefix followed by two
// newlines as required by the SSE specification.
type sseSink struct {
	w http.ResponseWriter
	r *http.Request
}

// Send formats and sends a job event as an SSE data event.
func (s sseSink) Send(ev broker.JobEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	_, err = s.w.Write([]byte("\n\n"))
	return err
}

// Context returns the request context for cancellation.
func (s sseSink) Context() context.Context { return s.r.Context() }

// Flush flushes the HTTP response writer so events reach the client
// immediately.
func (s sseSink) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
