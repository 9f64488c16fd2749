package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/kyled7/queue-vision/internal/broker"
	eventsvc "github.com/kyled7/queue-vision/internal/services/events"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

// EventsController streams job lifecycle events over SSE and WebSocket.
type EventsController struct {
	events   *eventsvc.Service
	logger   logpkg.Logger
	upgrader websocket.Upgrader
}

// NewEventsController creates a new events controller.
func NewEventsController(events *eventsvc.Service, logger logpkg.Logger) *EventsController {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &EventsController{
		events: events,
		logger: logger.WithComponent("events"),
		upgrader: websocket.Upgrader{
			// The dashboard UI is served from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the event stream routes with the given mux.
func (c *EventsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/events", c.handleSSE)
	mux.HandleFunc("/v1/events/ws", c.handleWebSocket)
}

// handleSSE streams job events as Server-Sent Events.
// GET /v1/events?queue=<q>
func (c *EventsController) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	opts := eventsvc.Options{Queue: r.URL.Query().Get("queue")}
	if err := c.events.StreamEvents(opts, sseSink{w: w, r: r}); err != nil {
		// Headers are already out; just log the stream failure.
		c.logger.Warn("sse stream ended", logpkg.Err(err), logpkg.Str("request_id", RequestID(r.Context())))
	}
}

// wsSink adapts a WebSocket connection to the events Sink interface.
type wsSink struct {
	conn *websocket.Conn
	ctx  context.Context
}

func (s wsSink) Send(ev broker.JobEvent) error { return s.conn.WriteJSON(ev) }
func (s wsSink) Context() context.Context      { return s.ctx }
func (s wsSink) Flush() error                  { return nil }

// handleWebSocket streams job events over a WebSocket connection.
// GET /v1/events/ws?queue=<q>
func (c *EventsController) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// The read pump only watches for the client going away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	opts := eventsvc.Options{Queue: r.URL.Query().Get("queue")}
	if err := c.events.StreamEvents(opts, wsSink{conn: conn, ctx: ctx}); err != nil {
		c.logger.Warn("websocket stream ended", logpkg.Err(err), logpkg.Str("request_id", RequestID(r.Context())))
	}
}
