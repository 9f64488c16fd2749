package bull

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kyled7/queue-vision/internal/broker"
)

// rollingWindow is the throughput window. Members whose termination score is
// exactly now-window old are counted (inclusive boundary).
const rollingWindow = time.Hour

// Metrics computes the per-queue rolling snapshot over the newest
// sampleHorizon members of the completed and failed ordered sets. Scores are
// termination timestamps in milliseconds. The two range reads run in
// parallel. The function does not page: the horizon is the contract; widen
// it at configuration time for tighter accuracy.
func (a *Adapter) Metrics(ctx context.Context, queue string) (broker.Metrics, error) {
	client, err := a.store()
	if err != nil {
		return broker.Metrics{}, err
	}
	if queue == "" {
		return broker.Metrics{}, broker.Errorf(broker.KindInvalidArgument, "queue name is required")
	}

	horizon := int64(a.sampleHorizon)
	var (
		wg                      sync.WaitGroup
		completed, failed       []ScoredMember
		completedErr, failedErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		completed, completedErr = client.ZRevRangeWithScores(ctx, a.layout.CompletedKey(queue), 0, horizon-1)
	}()
	go func() {
		defer wg.Done()
		failed, failedErr = client.ZRevRangeWithScores(ctx, a.layout.FailedKey(queue), 0, horizon-1)
	}()
	wg.Wait()
	if completedErr != nil {
		return broker.Metrics{}, completedErr
	}
	if failedErr != nil {
		return broker.Metrics{}, failedErr
	}

	now := time.Now()
	cutoff := float64(now.Add(-rollingWindow).UnixMilli())

	throughput := 0
	for _, m := range completed {
		if m.Score >= cutoff {
			throughput++
		}
	}
	for _, m := range failed {
		if m.Score >= cutoff {
			throughput++
		}
	}

	failureRate := 0.0
	if denom := len(completed) + len(failed); denom > 0 {
		failureRate = float64(len(failed)) / float64(denom)
	}

	avg, err := a.avgProcessingMs(ctx, client, queue, completed)
	if err != nil {
		return broker.Metrics{}, err
	}

	return broker.Metrics{
		Queue:           queue,
		Throughput:      throughput,
		FailureRate:     failureRate,
		AvgProcessingMs: avg,
		SampledAt:       now,
	}, nil
}

// avgProcessingMs averages finishedOn-processedOn over sampled completed
// records carrying both timestamps. Missing records and unparsable
// timestamps are skipped silently; an empty sample yields 0.
func (a *Adapter) avgProcessingMs(ctx context.Context, client *Client, queue string, completed []ScoredMember) (float64, error) {
	var (
		total float64
		n     int
	)
	for _, m := range completed {
		if err := ctx.Err(); err != nil {
			return 0, broker.Wrap(broker.KindCancelled, err, "metrics "+queue)
		}
		fields, err := client.HGetAll(ctx, a.layout.JobKey(queue, m.Member))
		if err != nil {
			return 0, err
		}
		if len(fields) == 0 {
			continue
		}
		processed, ok1 := millisField(fields, fieldProcessedOn)
		finished, ok2 := millisField(fields, fieldFinishedOn)
		if !ok1 || !ok2 {
			continue
		}
		total += float64(finished - processed)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return total / float64(n), nil
}

func millisField(fields map[string]string, name string) (int64, bool) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return 0, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}
