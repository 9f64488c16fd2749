package controllers

import (
	"net/http"

	"github.com/kyled7/queue-vision/internal/broker"
	queuesvc "github.com/kyled7/queue-vision/internal/services/queues"
)

// QueuesController handles queue inventory, job listing, job detail, and
// per-queue metrics endpoints.
type QueuesController struct {
	queues *queuesvc.Service
}

// NewQueuesController creates a new queues controller.
func NewQueuesController(queues *queuesvc.Service) *QueuesController {
	return &QueuesController{queues: queues}
}

// RegisterRoutes registers the queue routes with the given mux.
func (c *QueuesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/queues", c.handleListQueues)
	mux.HandleFunc("/v1/queues/jobs", c.handleListJobs)
	mux.HandleFunc("/v1/queues/job", c.handleGetJob)
	mux.HandleFunc("/v1/queues/metrics", c.handleQueueMetrics)
}

// handleListQueues lists the discovered queues with their status counts.
// GET /v1/queues
func (c *QueuesController) handleListQueues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	queues, err := c.queues.ListQueues(r.Context())
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, queuesResp{Queues: queues})
}

// handleListJobs returns one page of jobs.
// GET /v1/queues/jobs?queue=<q>&status=<s>&offset=<n>&limit=<n>&filter=<cel>
func (c *QueuesController) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	status, ok := broker.ParseStatus(q.Get("status"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status "+q.Get("status"))
		return
	}
	offset, ok := parseInt64(q.Get("offset"), 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "malformed offset")
		return
	}
	limit, ok := parseInt64(q.Get("limit"), 20)
	if !ok {
		writeError(w, http.StatusBadRequest, "malformed limit")
		return
	}
	page, err := c.queues.ListJobs(r.Context(), queuesvc.ListJobsOptions{
		Queue:  q.Get("queue"),
		Status: status,
		Offset: offset,
		Limit:  limit,
		Filter: q.Get("filter"),
	})
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, page)
}

// handleGetJob returns one job's full record.
// GET /v1/queues/job?queue=<q>&id=<id>
func (c *QueuesController) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	job, err := c.queues.GetJob(r.Context(), q.Get("queue"), q.Get("id"))
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, job)
}

// handleQueueMetrics returns the rolling metrics snapshot of one queue.
// GET /v1/queues/metrics?queue=<q>
func (c *QueuesController) handleQueueMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m, err := c.queues.QueueMetrics(r.Context(), r.URL.Query().Get("queue"))
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, m)
}
