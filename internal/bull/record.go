package bull

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/kyled7/queue-vision/internal/broker"
)

// Broker-side record field names.
const (
	fieldData         = "data"
	fieldOpts         = "opts"
	fieldReturnValue  = "returnvalue"
	fieldStacktrace   = "stacktrace"
	fieldFailedReason = "failedReason"
	fieldTimestamp    = "timestamp"
	fieldProcessedOn  = "processedOn"
	fieldFinishedOn   = "finishedOn"
	fieldDelay        = "delay"
	fieldAttempts     = "attemptsMade"
)

// decodeRecord turns a raw broker record into a normalized Job.
//
// Payload fields (data, opts, returnvalue) are lenient: a JSON parse failure
// surfaces the raw string so callers can inspect malformed jobs. Structural
// fields (timestamps, counters) are strict and fail with a Decode error.
func decodeRecord(queue, id string, status broker.JobStatus, fields map[string]string) (broker.Job, error) {
	job := broker.Job{ID: id, Queue: queue, Status: status}

	if raw, ok := fields[fieldData]; ok {
		job.Data = decodePayload(raw)
	}
	if raw, ok := fields[fieldOpts]; ok {
		job.Opts = decodePayload(raw)
	}
	if raw, ok := fields[fieldReturnValue]; ok {
		job.ReturnValue = decodePayload(raw)
	}

	stack := decodeStacktrace(fields[fieldStacktrace])
	if reason := fields[fieldFailedReason]; reason != "" || len(stack) > 0 {
		job.Error = &broker.JobError{Message: reason, Stack: stack}
	}

	if raw, ok := fields[fieldAttempts]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return broker.Job{}, broker.Wrap(broker.KindDecode, err, "attemptsMade of job "+id)
		}
		job.Attempts = n
	}
	job.MaxAttempts = maxAttemptsFromOpts(job.Opts)

	var err error
	if job.CreatedAt, err = decodeMillis(fields, fieldTimestamp, id); err != nil {
		return broker.Job{}, err
	}
	if job.ProcessedAt, err = decodeMillis(fields, fieldProcessedOn, id); err != nil {
		return broker.Job{}, err
	}
	if job.FinishedAt, err = decodeMillis(fields, fieldFinishedOn, id); err != nil {
		return broker.Job{}, err
	}

	if status == broker.StatusDelayed {
		release, err := delayedRelease(fields, job.CreatedAt, id)
		if err != nil {
			return broker.Job{}, err
		}
		job.DelayedUntil = release
	}
	return job, nil
}

// decodePayload parses a JSON-encoded field, surfacing the raw string when
// it does not parse.
func decodePayload(raw string) interface{} {
	if raw == "" {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// decodeStacktrace parses the stacktrace field into a list of strings. A
// malformed value is surfaced as a single raw entry rather than dropped.
func decodeStacktrace(raw string) []string {
	if raw == "" {
		return nil
	}
	var stack []string
	if err := json.Unmarshal([]byte(raw), &stack); err != nil {
		return []string{raw}
	}
	return stack
}

// maxAttemptsFromOpts pulls opts.attempts when the opts payload decoded to
// an object carrying a numeric attempts bound.
func maxAttemptsFromOpts(opts interface{}) int {
	m, ok := opts.(map[string]interface{})
	if !ok {
		return 0
	}
	switch v := m["attempts"].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// decodeMillis parses an integer milliseconds field into a timestamp.
// Absent or empty fields map to an absent attribute.
func decodeMillis(fields map[string]string, name, id string) (*time.Time, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, broker.Wrap(broker.KindDecode, err, name+" of job "+id)
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

// delayedRelease computes the scheduled release time of a delayed job:
// created + delay, when both are present.
func delayedRelease(fields map[string]string, created *time.Time, id string) (*time.Time, error) {
	raw, ok := fields[fieldDelay]
	if !ok || raw == "" || created == nil {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, broker.Wrap(broker.KindDecode, err, "delay of job "+id)
	}
	t := created.Add(time.Duration(ms) * time.Millisecond)
	return &t, nil
}
