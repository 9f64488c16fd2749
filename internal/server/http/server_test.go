package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kyled7/queue-vision/internal/broker"
	"github.com/kyled7/queue-vision/internal/bull"
	eventsvc "github.com/kyled7/queue-vision/internal/services/events"
	queuesvc "github.com/kyled7/queue-vision/internal/services/queues"
	"github.com/kyled7/queue-vision/internal/telemetry"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

func openTestServer(t *testing.T) (*Server, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	adapter := bull.New(bull.Options{Logger: logger})
	if err := adapter.Connect(context.Background(), "redis://"+m.Addr()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = adapter.Disconnect(context.Background()) })
	metrics := telemetry.New()
	s := New(queuesvc.New(adapter, logger, metrics), eventsvc.New(adapter, logger, metrics), metrics, logger)
	return s, m
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	return w
}

func seedQueue(t *testing.T, m *miniredis.Miniredis) {
	t.Helper()
	m.HSet("bull:emails:meta", "opts", "{}")
	if _, err := m.Push("bull:emails:wait", "j1", "j2"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, id := range []string{"j1", "j2"} {
		m.HSet("bull:emails:"+id, "data", `{"to":"a@b.c"}`, "timestamp", "1000")
	}
}

func TestHealthHandler(t *testing.T) {
	s, _ := openTestServer(t)
	w := get(t, s, "/v1/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestConnectionHandler(t *testing.T) {
	s, _ := openTestServer(t)
	w := get(t, s, "/v1/connection")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var conn broker.ConnInfo
	if err := json.Unmarshal(w.Body.Bytes(), &conn); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if conn.Host == "" || conn.Port == 0 {
		t.Fatalf("conn = %+v", conn)
	}
}

func TestListQueuesHandler(t *testing.T) {
	s, m := openTestServer(t)
	seedQueue(t, m)
	w := get(t, s, "/v1/queues")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Queues []broker.Queue `json:"queues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Queues) != 1 || resp.Queues[0].Name != "emails" || resp.Queues[0].Counts.Waiting != 2 {
		t.Fatalf("queues = %+v", resp.Queues)
	}
}

func TestListJobsHandler(t *testing.T) {
	s, m := openTestServer(t)
	seedQueue(t, m)
	w := get(t, s, "/v1/queues/jobs?queue=emails&status=waiting&offset=0&limit=10")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", w.Code, w.Body.String())
	}
	var page queuesvc.JobPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Jobs) != 2 || page.Jobs[0].ID != "j1" {
		t.Fatalf("page = %+v", page)
	}
}

func TestListJobsHandlerRejectsBadRequests(t *testing.T) {
	s, m := openTestServer(t)
	seedQueue(t, m)
	cases := []string{
		"/v1/queues/jobs?queue=emails&status=stuck",
		"/v1/queues/jobs?queue=emails&status=paused",
		"/v1/queues/jobs?queue=emails&status=waiting&limit=0",
		"/v1/queues/jobs?queue=emails&status=waiting&limit=101",
		"/v1/queues/jobs?queue=emails&status=waiting&offset=-1",
		"/v1/queues/jobs?queue=emails&status=waiting&limit=abc",
	}
	for _, path := range cases {
		if w := get(t, s, path); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", path, w.Code)
		}
	}
}

func TestGetJobHandler(t *testing.T) {
	s, m := openTestServer(t)
	seedQueue(t, m)
	w := get(t, s, "/v1/queues/job?queue=emails&id=j1")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", w.Code, w.Body.String())
	}
	var job broker.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.ID != "j1" || job.Status != broker.StatusWaiting {
		t.Fatalf("job = %+v", job)
	}
	if w := get(t, s, "/v1/queues/job?queue=emails&id=missing"); w.Code != http.StatusNotFound {
		t.Fatalf("missing job status: %d", w.Code)
	}
}

func TestQueueMetricsHandler(t *testing.T) {
	s, m := openTestServer(t)
	seedQueue(t, m)
	w := get(t, s, "/v1/queues/metrics?queue=emails")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", w.Code, w.Body.String())
	}
	var got broker.Metrics
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Queue != "emails" {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestPrometheusHandler(t *testing.T) {
	s, m := openTestServer(t)
	seedQueue(t, m)
	// generate one counted request first
	_ = get(t, s, "/v1/queues")
	w := get(t, s, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s, _ := openTestServer(t)
	w := get(t, s, "/v1/healthz")
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
}
