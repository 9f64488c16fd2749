package bull

import (
	"context"
	"sync"

	"github.com/kyled7/queue-vision/internal/broker"
)

// MaxListLimit bounds one job listing page.
const MaxListLimit = 100

// ListJobs returns one page of jobs for a queue and status. The index read
// uses the status's native ordering: list order for waiting/active, newest
// first for completed/failed, soonest first for delayed. Record fetches run
// concurrently; ids whose record vanished between index read and fetch are
// tombstones and dropped silently.
func (a *Adapter) ListJobs(ctx context.Context, req broker.ListJobsRequest) ([]broker.Job, error) {
	client, err := a.store()
	if err != nil {
		return nil, err
	}
	if req.Queue == "" {
		return nil, broker.Errorf(broker.KindInvalidArgument, "queue name is required")
	}
	if req.Offset < 0 {
		return nil, broker.Errorf(broker.KindInvalidArgument, "offset %d out of range", req.Offset)
	}
	if req.Limit < 1 || req.Limit > MaxListLimit {
		return nil, broker.Errorf(broker.KindInvalidArgument, "limit %d out of range [1,%d]", req.Limit, MaxListLimit)
	}

	start, stop := req.Offset, req.Offset+req.Limit-1
	var ids []string
	switch req.Status {
	case broker.StatusWaiting:
		ids, err = client.LRange(ctx, a.layout.WaitKey(req.Queue), start, stop)
	case broker.StatusActive:
		ids, err = client.LRange(ctx, a.layout.ActiveKey(req.Queue), start, stop)
	case broker.StatusCompleted:
		ids, err = client.ZRevRange(ctx, a.layout.CompletedKey(req.Queue), start, stop)
	case broker.StatusFailed:
		ids, err = client.ZRevRange(ctx, a.layout.FailedKey(req.Queue), start, stop)
	case broker.StatusDelayed:
		ids, err = client.ZRange(ctx, a.layout.DelayedKey(req.Queue), start, stop)
	case broker.StatusPaused:
		return nil, broker.Errorf(broker.KindInvalidArgument, "jobs are never paused individually")
	default:
		return nil, broker.Errorf(broker.KindInvalidArgument, "unknown job status %q", req.Status)
	}
	if err != nil {
		return nil, err
	}
	return a.fetchPage(ctx, client, req.Queue, req.Status, ids)
}

// fetchPage fetches the records of one id page concurrently, preserving
// index order and compacting tombstones out.
func (a *Adapter) fetchPage(ctx context.Context, client *Client, queue string, status broker.JobStatus, ids []string) ([]broker.Job, error) {
	if len(ids) == 0 {
		return []broker.Job{}, nil
	}
	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		first error
	)
	slots := make([]*broker.Job, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			fields, err := client.HGetAll(ctx, a.layout.JobKey(queue, id))
			if err != nil {
				errMu.Lock()
				if first == nil {
					first = err
				}
				errMu.Unlock()
				return
			}
			if len(fields) == 0 {
				// Tombstone: the broker pruned the record while its id was
				// still listed in the index.
				return
			}
			job, err := decodeRecord(queue, id, status, fields)
			if err != nil {
				errMu.Lock()
				if first == nil {
					first = err
				}
				errMu.Unlock()
				return
			}
			slots[i] = &job
		}(i, id)
	}
	wg.Wait()
	if first != nil {
		return nil, first
	}
	jobs := make([]broker.Job, 0, len(ids))
	for _, j := range slots {
		if j != nil {
			jobs = append(jobs, *j)
		}
	}
	return jobs, nil
}

// FetchJob resolves a job's status by probing the five indexes in order
// waiting, active, completed, failed, delayed. The first structure that
// reports the id present determines the status and no further probe is
// issued. A miss everywhere, or a record that vanished after a positive
// probe, yields NotFound.
func (a *Adapter) FetchJob(ctx context.Context, queue, id string) (broker.Job, error) {
	client, err := a.store()
	if err != nil {
		return broker.Job{}, err
	}
	if queue == "" || id == "" {
		return broker.Job{}, broker.Errorf(broker.KindInvalidArgument, "queue and id are required")
	}

	status, found, err := a.resolveStatus(ctx, client, queue, id)
	if err != nil {
		return broker.Job{}, err
	}
	if !found {
		return broker.Job{}, broker.Errorf(broker.KindNotFound, "job %s/%s not present in any index", queue, id)
	}

	fields, err := client.HGetAll(ctx, a.layout.JobKey(queue, id))
	if err != nil {
		return broker.Job{}, err
	}
	if len(fields) == 0 {
		return broker.Job{}, broker.Errorf(broker.KindNotFound, "job %s/%s record vanished", queue, id)
	}
	return decodeRecord(queue, id, status, fields)
}

// resolveStatus probes the indexes in the contract's fixed order. Lists are
// probed by member position, ordered sets by member score.
func (a *Adapter) resolveStatus(ctx context.Context, client *Client, queue, id string) (broker.JobStatus, bool, error) {
	if _, ok, err := client.LPos(ctx, a.layout.WaitKey(queue), id); err != nil {
		return "", false, err
	} else if ok {
		return broker.StatusWaiting, true, nil
	}
	if _, ok, err := client.LPos(ctx, a.layout.ActiveKey(queue), id); err != nil {
		return "", false, err
	} else if ok {
		return broker.StatusActive, true, nil
	}
	if _, ok, err := client.ZScore(ctx, a.layout.CompletedKey(queue), id); err != nil {
		return "", false, err
	} else if ok {
		return broker.StatusCompleted, true, nil
	}
	if _, ok, err := client.ZScore(ctx, a.layout.FailedKey(queue), id); err != nil {
		return "", false, err
	} else if ok {
		return broker.StatusFailed, true, nil
	}
	if _, ok, err := client.ZScore(ctx, a.layout.DelayedKey(queue), id); err != nil {
		return "", false, err
	} else if ok {
		return broker.StatusDelayed, true, nil
	}
	return "", false, nil
}
