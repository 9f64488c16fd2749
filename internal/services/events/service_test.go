package eventsvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kyled7/queue-vision/internal/broker"
	"github.com/kyled7/queue-vision/internal/bull"
	"github.com/kyled7/queue-vision/internal/telemetry"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

type chanSink struct {
	ctx context.Context
	out chan broker.JobEvent
}

func (s chanSink) Send(ev broker.JobEvent) error { s.out <- ev; return nil }
func (s chanSink) Context() context.Context      { return s.ctx }
func (s chanSink) Flush() error                  { return nil }

func openTestEvents(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	logger := logpkg.NewLogger(logpkg.WithLevel(logpkg.FatalLevel))
	adapter := bull.New(bull.Options{Logger: logger})
	if err := adapter.Connect(context.Background(), "redis://"+m.Addr()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = adapter.Disconnect(context.Background()) })
	return New(adapter, logger, telemetry.New()), m
}

func TestStreamEventsDelivers(t *testing.T) {
	svc, m := openTestEvents(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := chanSink{ctx: ctx, out: make(chan broker.JobEvent, 8)}
	done := make(chan error, 1)
	go func() { done <- svc.StreamEvents(Options{}, sink) }()

	// give the stream a moment to register its listener
	time.Sleep(50 * time.Millisecond)
	m.Publish("__keyspace@0__:bull:emails:wait", "lpush")

	select {
	case ev := <-sink.out:
		if ev.Kind != broker.EventWaiting || ev.Queue != "emails" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event within one second")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("stream did not stop on cancel")
	}
}

func TestStreamEventsQueueFilter(t *testing.T) {
	svc, m := openTestEvents(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := chanSink{ctx: ctx, out: make(chan broker.JobEvent, 8)}
	go func() { _ = svc.StreamEvents(Options{Queue: "emails"}, sink) }()

	time.Sleep(50 * time.Millisecond)
	m.Publish("__keyspace@0__:bull:billing:wait", "lpush")
	m.Publish("__keyspace@0__:bull:emails:failed", "zadd")

	select {
	case ev := <-sink.out:
		if ev.Queue != "emails" || ev.Kind != broker.EventFailed {
			t.Fatalf("filter leaked %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event within one second")
	}
	select {
	case ev := <-sink.out:
		t.Fatalf("unexpected extra event %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
