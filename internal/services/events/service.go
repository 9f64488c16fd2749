package eventsvc

import (
	"context"

	"github.com/kyled7/queue-vision/internal/broker"
	"github.com/kyled7/queue-vision/internal/telemetry"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

// Sink receives the translated event stream. SSE and WebSocket transports
// implement it.
type Sink interface {
	// Send writes one event to the transport.
	Send(ev broker.JobEvent) error
	// Context returns the transport's context for cancellation.
	Context() context.Context
	// Flush pushes buffered bytes to the client, if the transport buffers.
	Flush() error
}

// Options narrow one subscription.
type Options struct {
	// Queue restricts the stream to a single queue when non-empty.
	Queue string
	// Buffer is the per-sink event buffer (default 256). When the sink
	// falls behind the oldest buffered event is shed and counted.
	Buffer int
}

// Service bridges adapter job events to transport sinks. Every sink gets its
// own listener registration on the shared adapter subscription, so slow
// clients shed their own events instead of stalling the delivery loop.
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
	return &Service{adapter: adapter, logger: logger.WithComponent("events"), metrics: metrics}
}

// StreamEvents registers a listener and pumps matching events into the sink
// until the sink's context ends or the transport write fails. The listener
// callback only enqueues: transport writes happen on this goroutine so the
// adapter's delivery loop never blocks on a client.
func (s *Service) StreamEvents(opts Options, sink Sink) error {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 256
	}
	ch := make(chan broker.JobEvent, buffer)
	unsub, err := s.adapter.Subscribe(func(ev broker.JobEvent) {
		if opts.Queue != "" && ev.Queue != opts.Queue {
			return
		}
		for {
			select {
			case ch <- ev:
				return
			default:
			}
			// The sink is too far behind: shed the oldest buffered event.
			select {
			case <-ch:
				s.metrics.EventsDropped.Inc()
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	defer unsub()

	s.metrics.Subscribers.Inc()
	defer s.metrics.Subscribers.Dec()
	s.logger.Debug("subscriber attached", logpkg.Str("queue", opts.Queue))
	defer s.logger.Debug("subscriber detached", logpkg.Str("queue", opts.Queue))

	ctx := sink.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			if err := sink.Send(ev); err != nil {
				return err
			}
			if err := sink.Flush(); err != nil {
				return err
			}
			s.metrics.EventsDelivered.Inc()
		}
	}
}
