package controllers

import (
	"net/http"

	eventsvc "github.com/kyled7/queue-vision/internal/services/events"
	queuesvc "github.com/kyled7/queue-vision/internal/services/queues"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	queues  *QueuesController
	events  *EventsController
}

// NewControllerRegistry initializes all controllers with the provided
// services.
func NewControllerRegistry(queues *queuesvc.Service, events *eventsvc.Service, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(queues),
		queues:  NewQueuesController(queues),
		events:  NewEventsController(events, logger),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.queues.RegisterRoutes(mux)
	r.events.RegisterRoutes(mux)
}
