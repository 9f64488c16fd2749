package queuesvc

import (
	"context"
	"sort"

	"github.com/kyled7/queue-vision/internal/broker"
	"github.com/kyled7/queue-vision/internal/telemetry"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

// Service is the read facade the HTTP surface consumes. It validates
// requests, forwards them to the broker adapter, applies optional CEL
// filters to job pages, and keeps the request counters current.
type Service struct {
	adapter broker.Adapter
	logger  logpkg.Logger
	metrics *telemetry.Metrics
}

// New builds a Service over the given adapter.
func New(adapter broker.Adapter, logger logpkg.Logger, metrics *telemetry.Metrics) *Service {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	if metrics == nil {
		metrics = telemetry.New()
	}
	return &Service{adapter: adapter, logger: logger.WithComponent("queues"), metrics: metrics}
}

func (s *Service) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(broker.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	s.metrics.ObserveRequest(op, outcome)
}

// ListQueues returns the discovered queue inventory sorted by name.
func (s *Service) ListQueues(ctx context.Context) ([]broker.Queue, error) {
	queues, err := s.adapter.Discover(ctx)
	s.observe("discover", err)
	if err != nil {
		return nil, err
	}
	sort.Slice(queues, func(i, j int) bool { return queues[i].Name < queues[j].Name })
	return queues, nil
}

// ListJobsOptions parameterizes one job listing page.
type ListJobsOptions struct {
	Queue  string
	Status broker.JobStatus
	Offset int64
	Limit  int64
	// Filter is an optional CEL expression evaluated against each decoded
	// job; jobs it rejects are removed from the page.
	Filter string
}

// JobPage is one page of a job listing with its request echo.
type JobPage struct {
	Queue  string       `json:"queue"`
	Status string       `json:"status"`
	Offset int64        `json:"offset"`
	Limit  int64        `json:"limit"`
	Jobs   []broker.Job `json:"jobs"`
}

// ListJobs returns one page of jobs, optionally narrowed by a CEL filter.
// Filtering happens after the page read: the page window is positional in
// the broker index, so a filtered page may hold fewer than limit jobs.
func (s *Service) ListJobs(ctx context.Context, opts ListJobsOptions) (JobPage, error) {
	filter, err := newJobFilter(opts.Filter)
	if err != nil {
		s.observe("list_jobs", err)
		return JobPage{}, err
	}
	jobs, err := s.adapter.ListJobs(ctx, broker.ListJobsRequest{
		Queue:  opts.Queue,
		Status: opts.Status,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	})
	s.observe("list_jobs", err)
	if err != nil {
		return JobPage{}, err
	}
	if filter.enabled {
		kept := jobs[:0]
		for _, j := range jobs {
			if filter.Eval(j) {
				kept = append(kept, j)
			}
		}
		jobs = kept
	}
	return JobPage{
		Queue:  opts.Queue,
		Status: string(opts.Status),
		Offset: opts.Offset,
		Limit:  opts.Limit,
		Jobs:   jobs,
	}, nil
}

// GetJob returns one job's full record.
func (s *Service) GetJob(ctx context.Context, queue, id string) (broker.Job, error) {
	job, err := s.adapter.FetchJob(ctx, queue, id)
	s.observe("fetch_job", err)
	return job, err
}

// QueueMetrics returns the rolling metrics snapshot of one queue.
func (s *Service) QueueMetrics(ctx context.Context, queue string) (broker.Metrics, error) {
	m, err := s.adapter.Metrics(ctx, queue)
	s.observe("metrics", err)
	return m, err
}

// Conn reports the adapter's endpoint descriptor.
func (s *Service) Conn() broker.ConnInfo { return s.adapter.Conn() }
