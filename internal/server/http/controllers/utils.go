package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kyled7/queue-vision/internal/broker"
)

// Helper functions for common HTTP responses

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeBrokerError maps a tagged adapter error onto an HTTP status.
func writeBrokerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch broker.KindOf(err) {
	case broker.KindInvalidArgument:
		status = http.StatusBadRequest
	case broker.KindNotFound:
		status = http.StatusNotFound
	case broker.KindNotConnected, broker.KindCancelled:
		status = http.StatusServiceUnavailable
	case broker.KindTransport:
		status = http.StatusBadGateway
	case broker.KindDecode, broker.KindInternal, broker.KindAlreadySubscribed:
		status = http.StatusInternalServerError
	}
	writeError(w, status, err.Error())
}

// parseInt64 parses a query parameter, returning def for empty strings.
// ok is false for values that do not parse.
func parseInt64(s string, def int64) (v int64, ok bool) {
	if s == "" {
		return def, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

type requestIDKey struct{}

// WithRequestID attaches a request id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id attached by the middleware, if any.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
