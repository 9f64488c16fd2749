package controllers

import (
	"net/http"

	queuesvc "github.com/kyled7/queue-vision/internal/services/queues"
)

// GeneralController handles health and connection endpoints.
type GeneralController struct {
	queues *queuesvc.Service
}

// NewGeneralController creates a new general controller.
func NewGeneralController(queues *queuesvc.Service) *GeneralController {
	return &GeneralController{queues: queues}
}

// RegisterRoutes registers the general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/connection", c.handleConnection)
}

// handleHealth reports whether the adapter currently holds a broker
// connection.
// GET /v1/healthz
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if c.queues.Conn().Host == "" {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleConnection reports the broker endpoint descriptor.
// GET /v1/connection
func (c *GeneralController) handleConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, c.queues.Conn())
}
