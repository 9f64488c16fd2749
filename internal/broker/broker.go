package broker

import (
	"context"
	"time"
)

// JobStatus is the closed set of normalized job states.
type JobStatus string

// Job statuses. Paused is a queue-level flag only; jobs never carry it.
const (
	StatusWaiting   JobStatus = "waiting"
	StatusActive    JobStatus = "active"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusDelayed   JobStatus = "delayed"
	StatusPaused    JobStatus = "paused"
)

// ListStatuses enumerates the statuses a job listing may be requested for.
// Paused is excluded: it is never an individual job state.
var ListStatuses = []JobStatus{StatusWaiting, StatusActive, StatusCompleted, StatusFailed, StatusDelayed}

// ParseStatus maps a status name to a JobStatus. ok is false for names
// outside the closed set.
func ParseStatus(s string) (JobStatus, bool) {
	switch JobStatus(s) {
	case StatusWaiting, StatusActive, StatusCompleted, StatusFailed, StatusDelayed, StatusPaused:
		return JobStatus(s), true
	}
	return "", false
}

// ConnInfo describes the broker endpoint a queue was discovered on.
// Captured at connect time; purely diagnostic.
type ConnInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	DB   int    `json:"db"`
}

// StatusCounts holds the per-status job counts of a queue at discovery time.
type StatusCounts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

// Queue is a snapshot of one broker queue. Synthesized per Discover call,
// never cached.
type Queue struct {
	Name   string       `json:"name"`
	Counts StatusCounts `json:"counts"`
	Conn   ConnInfo     `json:"conn"`
}

// JobError is the terminal error record of a failed job.
type JobError struct {
	Message string   `json:"message"`
	Stack   []string `json:"stack,omitempty"`
}

// Job is the normalized view of one broker job record.
//
// Payload fields (Data, Opts, ReturnValue) hold decoded JSON values; when the
// broker-side field is not valid JSON the raw string is surfaced instead so
// malformed jobs stay inspectable.
type Job struct {
	ID          string      `json:"id"`
	Queue       string      `json:"queue"`
	Status      JobStatus   `json:"status"`
	Data        interface{} `json:"data,omitempty"`
	Opts        interface{} `json:"opts,omitempty"`
	ReturnValue interface{} `json:"returnValue,omitempty"`
	Error       *JobError   `json:"error,omitempty"`
	Attempts    int         `json:"attempts"`
	MaxAttempts int         `json:"maxAttempts,omitempty"`

	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	DelayedUntil *time.Time `json:"delayedUntil,omitempty"`
}

// EventKind classifies a job lifecycle event.
type EventKind string

// Event kinds emitted by Subscribe.
const (
	EventUpdated   EventKind = "updated"
	EventRemoved   EventKind = "removed"
	EventWaiting   EventKind = "waiting"
	EventDequeued  EventKind = "dequeued"
	EventActive    EventKind = "active"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventDelayed   EventKind = "delayed"
)

// JobEvent is a semantic job lifecycle event derived from broker keyspace
// notifications. JobID is empty for queue-level events that do not carry the
// id inline.
type JobEvent struct {
	Kind      EventKind `json:"kind"`
	Queue     string    `json:"queue"`
	JobID     string    `json:"jobId"`
	Timestamp time.Time `json:"timestamp"`
}

// Metrics is a per-queue rolling snapshot computed over a bounded sample of
// terminal jobs (see the adapter's sampling horizon).
type Metrics struct {
	Queue string `json:"queue"`
	// Throughput counts jobs terminated in the last hour, completed plus
	// failed, within the sampled population.
	Throughput int `json:"throughput"`
	// FailureRate is |failed sample| / |terminal sample|, in [0,1].
	FailureRate float64 `json:"failureRate"`
	// AvgProcessingMs is the mean of finished-processedStart over sampled
	// completed jobs with both timestamps; 0 when the sample is empty.
	AvgProcessingMs float64   `json:"avgProcessingMs"`
	SampledAt       time.Time `json:"sampledAt"`
}

// Listener consumes job events. Callbacks run serially on the delivery loop
// and must not block for long.
type Listener func(JobEvent)

// UnsubscribeFunc releases a listener registration. Idempotent.
type UnsubscribeFunc func()

// ListJobsRequest parameterizes one page of a job listing.
type ListJobsRequest struct {
	Queue  string
	Status JobStatus
	Offset int64
	// Limit must be in [1,100].
	Limit int64
}

// Adapter is the normalized read-only contract over one broker connection.
//
// Subscription model: implementations in this repo use the multi-listener
// model — a single underlying broker subscription shared by any number of
// registered listeners, with in-process fan-out. Each listener observes
// events in broker order and every listener sees the same sequence. The
// AlreadySubscribed error kind is reserved for single-subscriber
// implementations of this same interface.
//
// All failures are reported as *Error values (see errors.go for kinds).
type Adapter interface {
	// Connect validates the endpoint, opens the command connection and
	// waits for it to become ready, bounded by the adapter's connect
	// timeout.
	Connect(ctx context.Context, endpoint string) error
	// Disconnect tears down the subscriber (if any) then the command
	// connection. Idempotent: repeated calls after success are no-ops.
	Disconnect(ctx context.Context) error

	// Discover scans the broker for queues and returns an unordered
	// snapshot with per-status counts.
	Discover(ctx context.Context) ([]Queue, error)
	// ListJobs returns one page of jobs for a queue and status. Ids whose
	// record vanished between index read and record fetch are dropped.
	ListJobs(ctx context.Context, req ListJobsRequest) ([]Job, error)
	// FetchJob resolves a single job's status and record.
	FetchJob(ctx context.Context, queue, id string) (Job, error)
	// Metrics computes the rolling metrics snapshot for a queue.
	Metrics(ctx context.Context, queue string) (Metrics, error)

	// Subscribe registers a listener for job events, lazily establishing
	// the shared broker subscription. The returned function unregisters
	// the listener and is idempotent.
	Subscribe(listener Listener) (UnsubscribeFunc, error)

	// Conn reports the endpoint descriptor captured at connect time.
	Conn() ConnInfo
}
