package bull

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kyled7/queue-vision/internal/broker"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

// Options tune one Adapter instance.
type Options struct {
	// Prefix overrides the broker key prefix (default "bull").
	Prefix string
	// SampleHorizon bounds how many terminal jobs Metrics inspects per
	// ordered set (default 100).
	SampleHorizon int
	// ConnectTimeout caps how long Connect waits for first ready/error
	// (default 10s).
	ConnectTimeout time.Duration
	Logger         logpkg.Logger
}

// DefaultSampleHorizon is the metrics sampling bound when none is configured.
const DefaultSampleHorizon = 100

// DefaultConnectTimeout bounds Connect when no timeout is configured.
const DefaultConnectTimeout = 10 * time.Second

// Adapter is the BullMQ-on-Redis implementation of broker.Adapter. It
// exclusively owns its two store connections; both are strictly contained in
// the Connect/Disconnect pair.
type Adapter struct {
	layout        Layout
	sampleHorizon int
	connectTO     time.Duration
	logger        logpkg.Logger

	mu     sync.Mutex
	client *Client // nil while disconnected

	// subscriber state, owned by events.go. Guarded by mu.
	sub       *Subscriber
	subDone   chan struct{}
	listeners map[string]broker.Listener
}

// New builds a disconnected Adapter.
func New(opts Options) *Adapter {
	if opts.SampleHorizon <= 0 {
		opts.SampleHorizon = DefaultSampleHorizon
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger()
	}
	return &Adapter{
		layout:        NewLayout(opts.Prefix),
		sampleHorizon: opts.SampleHorizon,
		connectTO:     opts.ConnectTimeout,
		logger:        opts.Logger.WithComponent("bull"),
		listeners:     map[string]broker.Listener{},
	}
}

var _ broker.Adapter = (*Adapter)(nil)

// Connect opens the command connection and waits for the first ready/error.
func (a *Adapter) Connect(ctx context.Context, endpoint string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return broker.Errorf(broker.KindInternal, "already connected")
	}
	client, err := Dial(ctx, endpoint, a.connectTO)
	if err != nil {
		return err
	}
	a.client = client
	conn := client.Conn()
	a.logger.Info("connected",
		logpkg.Str("host", conn.Host),
		logpkg.Int("port", conn.Port),
		logpkg.Int("db", conn.DB),
		logpkg.Str("prefix", a.layout.Prefix),
	)
	return nil
}

// Disconnect closes the subscriber (unsubscribe + close) then the command
// connection. Idempotent: calls after a successful disconnect are no-ops.
// After it returns no background delivery task remains scheduled.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	client := a.client
	a.client = nil
	sub := a.sub
	done := a.subDone
	a.sub = nil
	a.subDone = nil
	a.listeners = map[string]broker.Listener{}
	a.mu.Unlock()

	if client == nil {
		return nil
	}
	var firstErr error
	if sub != nil {
		if err := sub.Close(); err != nil {
			a.logger.Warn("subscriber close failed, connection force-closed", logpkg.Err(err))
			firstErr = err
		}
		// Closing the subscription ends the delivery loop; join it so no
		// background task survives Disconnect.
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			a.logger.Warn("delivery loop did not stop in time")
		case <-ctx.Done():
		}
	}
	if err := client.Close(); err != nil {
		a.logger.Warn("command close failed, connection force-closed", logpkg.Err(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	a.logger.Info("disconnected")
	return firstErr
}

// Conn reports the endpoint descriptor, zero-valued while disconnected.
func (a *Adapter) Conn() broker.ConnInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return broker.ConnInfo{}
	}
	return a.client.Conn()
}

// store returns the command client or a NotConnected error.
func (a *Adapter) store() (*Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil, broker.Errorf(broker.KindNotConnected, "not connected")
	}
	return a.client, nil
}

// Discover cursor-scans for queue meta keys and assembles a Queue snapshot
// per parsed name. The five count probes of each queue run concurrently;
// any probe failure fails the whole call so counts stay consistent.
func (a *Adapter) Discover(ctx context.Context) ([]broker.Queue, error) {
	client, err := a.store()
	if err != nil {
		return nil, err
	}
	keys, err := client.ScanKeys(ctx, a.layout.MetaPattern())
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	seen := map[string]struct{}{}
	for _, key := range keys {
		queue, ok := a.layout.ParseMetaKey(key)
		if !ok {
			continue
		}
		if IsReservedSuffix(queue) {
			// A queue named after a reserved tail token would be misparsed
			// by the event translator; drop it.
			a.logger.Warn("dropping queue named after a reserved token", logpkg.Str("queue", queue))
			continue
		}
		if _, dup := seen[queue]; dup {
			continue
		}
		seen[queue] = struct{}{}
		names = append(names, queue)
	}
	sort.Strings(names)

	conn := client.Conn()
	queues := make([]broker.Queue, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, broker.Wrap(broker.KindCancelled, err, "discover")
		}
		counts, err := a.countQueue(ctx, client, name)
		if err != nil {
			return nil, err
		}
		queues = append(queues, broker.Queue{Name: name, Counts: counts, Conn: conn})
	}
	return queues, nil
}

// countQueue issues the five status count probes concurrently.
func (a *Adapter) countQueue(ctx context.Context, client *Client, queue string) (broker.StatusCounts, error) {
	var (
		counts broker.StatusCounts
		wg     sync.WaitGroup
		errMu  sync.Mutex
		first  error
	)
	probe := func(dst *int64, fn func() (int64, error)) {
		defer wg.Done()
		n, err := fn()
		if err != nil {
			errMu.Lock()
			if first == nil {
				first = err
			}
			errMu.Unlock()
			return
		}
		*dst = n
	}
	wg.Add(5)
	go probe(&counts.Waiting, func() (int64, error) { return client.LLen(ctx, a.layout.WaitKey(queue)) })
	go probe(&counts.Active, func() (int64, error) { return client.LLen(ctx, a.layout.ActiveKey(queue)) })
	go probe(&counts.Completed, func() (int64, error) { return client.ZCard(ctx, a.layout.CompletedKey(queue)) })
	go probe(&counts.Failed, func() (int64, error) { return client.ZCard(ctx, a.layout.FailedKey(queue)) })
	go probe(&counts.Delayed, func() (int64, error) { return client.ZCard(ctx, a.layout.DelayedKey(queue)) })
	wg.Wait()
	if first != nil {
		return broker.StatusCounts{}, first
	}
	return counts, nil
}
