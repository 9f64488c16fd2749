package bull

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kyled7/queue-vision/internal/broker"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

func quietLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithLevel(logpkg.FatalLevel))
}

func openTestAdapter(t *testing.T, opts Options) (*Adapter, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	a := New(opts)
	if err := a.Connect(context.Background(), "redis://"+m.Addr()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = a.Disconnect(context.Background()) })
	return a, m
}

// seedQueue loads the reference scenario: wait=[j1,j2], active=[j3],
// completed={j4@1000,j5@2000}, failed={j6@1500}, delayed={j7@5e9}.
func seedQueue(t *testing.T, m *miniredis.Miniredis, queue string) {
	t.Helper()
	m.HSet("bull:"+queue+":meta", "opts", "{}")
	if _, err := m.Push("bull:"+queue+":wait", "j1", "j2"); err != nil {
		t.Fatalf("seed wait: %v", err)
	}
	if _, err := m.Push("bull:"+queue+":active", "j3"); err != nil {
		t.Fatalf("seed active: %v", err)
	}
	mustZAdd(t, m, "bull:"+queue+":completed", 1000, "j4")
	mustZAdd(t, m, "bull:"+queue+":completed", 2000, "j5")
	mustZAdd(t, m, "bull:"+queue+":failed", 1500, "j6")
	mustZAdd(t, m, "bull:"+queue+":delayed", 5_000_000_000, "j7")
	for _, id := range []string{"j1", "j2", "j3", "j4", "j5", "j6", "j7"} {
		m.HSet("bull:"+queue+":"+id, "data", `{"n":"`+id+`"}`, "timestamp", "500")
	}
	m.HSet("bull:"+queue+":j6", "failedReason", "smtp timeout", "attemptsMade", "2", "finishedOn", "1500")
	m.HSet("bull:"+queue+":j7", "delay", "4999999500")
}

func mustZAdd(t *testing.T, m *miniredis.Miniredis, key string, score float64, member string) {
	t.Helper()
	if _, err := m.ZAdd(key, score, member); err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}

func TestConnectRejectsBadEndpoint(t *testing.T) {
	a := New(Options{Logger: quietLogger()})
	err := a.Connect(context.Background(), "http://localhost:6379")
	if !broker.IsKind(err, broker.KindInvalidArgument) {
		t.Fatalf("want invalid_argument, got %v", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	a := New(Options{ConnectTimeout: 200 * time.Millisecond, Logger: quietLogger()})
	err := a.Connect(context.Background(), "redis://127.0.0.1:1")
	if !broker.IsKind(err, broker.KindTransport) {
		t.Fatalf("want transport, got %v", err)
	}
	// a failed connect leaves the adapter disconnected
	if _, derr := a.Discover(context.Background()); !broker.IsKind(derr, broker.KindNotConnected) {
		t.Fatalf("want not_connected after failed connect, got %v", derr)
	}
}

func TestOperationsRequireConnect(t *testing.T) {
	a := New(Options{Logger: quietLogger()})
	ctx := context.Background()
	if _, err := a.Discover(ctx); !broker.IsKind(err, broker.KindNotConnected) {
		t.Fatalf("discover: %v", err)
	}
	if _, err := a.ListJobs(ctx, broker.ListJobsRequest{Queue: "q", Status: broker.StatusWaiting, Limit: 10}); !broker.IsKind(err, broker.KindNotConnected) {
		t.Fatalf("list: %v", err)
	}
	if _, err := a.FetchJob(ctx, "q", "1"); !broker.IsKind(err, broker.KindNotConnected) {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := a.Metrics(ctx, "q"); !broker.IsKind(err, broker.KindNotConnected) {
		t.Fatalf("metrics: %v", err)
	}
	if _, err := a.Subscribe(func(broker.JobEvent) {}); !broker.IsKind(err, broker.KindNotConnected) {
		t.Fatalf("subscribe: %v", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	m := miniredis.RunT(t)
	a := New(Options{Logger: quietLogger()})
	ctx := context.Background()
	if err := a.Connect(ctx, "redis://"+m.Addr()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := a.Disconnect(ctx); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := a.Disconnect(ctx); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}
	if err := a.Disconnect(ctx); err != nil {
		t.Fatalf("third disconnect: %v", err)
	}
}

func TestConnReportsEndpoint(t *testing.T) {
	a, _ := openTestAdapter(t, Options{})
	conn := a.Conn()
	if conn.Host == "" || conn.Port == 0 {
		t.Fatalf("conn info empty: %+v", conn)
	}
	if conn.DB != 0 {
		t.Fatalf("db = %d", conn.DB)
	}
}

func TestDiscoverEmptyBroker(t *testing.T) {
	a, _ := openTestAdapter(t, Options{})
	queues, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(queues) != 0 {
		t.Fatalf("want no queues, got %d", len(queues))
	}
}

func TestDiscoverCounts(t *testing.T) {
	a, m := openTestAdapter(t, Options{})
	seedQueue(t, m, "emails")
	queues, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(queues) != 1 {
		t.Fatalf("want 1 queue, got %d", len(queues))
	}
	q := queues[0]
	if q.Name != "emails" {
		t.Fatalf("name = %q", q.Name)
	}
	want := broker.StatusCounts{Waiting: 2, Active: 1, Completed: 2, Failed: 1, Delayed: 1}
	if q.Counts != want {
		t.Fatalf("counts = %+v, want %+v", q.Counts, want)
	}
	if q.Conn.Host == "" {
		t.Fatalf("queue missing conn descriptor")
	}
}

func TestDiscoverDropsReservedNames(t *testing.T) {
	a, m := openTestAdapter(t, Options{})
	seedQueue(t, m, "emails")
	// a queue named after a reserved tail token must be dropped
	m.HSet("bull:wait:meta", "opts", "{}")
	queues, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(queues) != 1 || queues[0].Name != "emails" {
		t.Fatalf("reserved-name queue not dropped: %+v", queues)
	}
}

func TestDiscoverMultipleQueues(t *testing.T) {
	a, m := openTestAdapter(t, Options{})
	seedQueue(t, m, "emails")
	m.HSet("bull:video-encode:meta", "opts", "{}")
	queues, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(queues) != 2 {
		t.Fatalf("want 2 queues, got %+v", queues)
	}
}

func TestDiscoverCancelled(t *testing.T) {
	a, m := openTestAdapter(t, Options{})
	seedQueue(t, m, "emails")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Discover(ctx)
	if !broker.IsKind(err, broker.KindCancelled) {
		t.Fatalf("want cancelled, got %v", err)
	}
}
