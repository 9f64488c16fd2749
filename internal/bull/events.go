package bull

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kyled7/queue-vision/internal/broker"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

// Subscribe registers a listener for job events. The subscriber connection
// and its single pattern subscription are created lazily on the first call;
// later listeners share it. The returned unregister func is idempotent.
// Unregistering the last listener keeps the subscriber open — Disconnect is
// the release point — so re-subscribing stays cheap.
func (a *Adapter) Subscribe(listener broker.Listener) (broker.UnsubscribeFunc, error) {
	if listener == nil {
		return nil, broker.Errorf(broker.KindInvalidArgument, "listener is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil, broker.Errorf(broker.KindNotConnected, "not connected")
	}
	if a.sub == nil {
		if err := a.verifyKeyspaceEvents(); err != nil {
			return nil, err
		}
		pattern := a.layout.KeyspacePattern(a.client.Conn().DB)
		sub, err := a.client.OpenSubscriber(context.Background(), pattern)
		if err != nil {
			return nil, err
		}
		a.sub = sub
		a.subDone = make(chan struct{})
		go a.deliverLoop(sub, a.subDone)
		a.logger.Info("subscribed to keyspace events", logpkg.Str("pattern", pattern))
	}

	token := uuid.NewString()
	a.listeners[token] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, token)
			a.mu.Unlock()
		})
	}, nil
}

// verifyKeyspaceEvents best-effort checks the broker's notification config.
// Brokers that do not expose CONFIG are given the benefit of the doubt.
// Caller holds a.mu.
func (a *Adapter) verifyKeyspaceEvents() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	value, supported := a.client.NotifyKeyspaceEvents(ctx)
	if !supported {
		a.logger.Debug("broker does not expose notify-keyspace-events, skipping check")
		return nil
	}
	if !strings.ContainsRune(value, 'K') {
		return broker.Errorf(broker.KindTransport, "keyspace notifications disabled (notify-keyspace-events=%q)", value)
	}
	return nil
}

// deliverLoop runs serially over incoming keyspace messages, translating
// each into a job event and fanning it out to the registered listeners.
// Every listener observes events in broker order; a panicking listener is
// logged and never terminates the loop.
func (a *Adapter) deliverLoop(sub *Subscriber, done chan struct{}) {
	defer close(done)
	for msg := range sub.Channel() {
		ev, ok := a.translate(msg.Channel, msg.Payload)
		if !ok {
			continue
		}
		a.mu.Lock()
		listeners := make([]broker.Listener, 0, len(a.listeners))
		for _, l := range a.listeners {
			listeners = append(listeners, l)
		}
		a.mu.Unlock()
		for _, l := range listeners {
			a.invoke(l, ev)
		}
	}
}

func (a *Adapter) invoke(l broker.Listener, ev broker.JobEvent) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("listener panicked", logpkg.Any("panic", r), logpkg.Str("queue", ev.Queue))
		}
	}()
	l(ev)
}

// translate converts one keyspace notification into a job event. channel is
// __keyspace@<db>__:<prefix>:<tail> and op is the mutation verb. ok is false
// for messages that carry no semantic event (wrong envelope, meta keys,
// index verbs outside the mapping).
func (a *Adapter) translate(channel, op string) (ev broker.JobEvent, ok bool) {
	defer func() {
		// The translator must never fail the delivery loop.
		if r := recover(); r != nil {
			a.logger.Error("event translation panicked", logpkg.Any("panic", r), logpkg.Str("channel", channel))
			ok = false
		}
	}()

	envelope := a.layout.KeyspaceChannelPrefix(a.Conn().DB)
	if !strings.HasPrefix(channel, envelope) {
		return broker.JobEvent{}, false
	}
	queue, tail, split := SplitQueueTail(channel[len(envelope):])
	if !split {
		return broker.JobEvent{}, false
	}

	now := time.Now()
	if IsReservedSuffix(tail) {
		kind, mapped := indexEventKind(tail, op)
		if !mapped {
			return broker.JobEvent{}, false
		}
		return broker.JobEvent{Kind: kind, Queue: queue, Timestamp: now}, true
	}

	// The tail is a job id, which may itself contain ":".
	kind := broker.EventUpdated
	switch op {
	case "hset", "hmset":
		kind = broker.EventUpdated
	case "del":
		kind = broker.EventRemoved
	default:
		// The broker may add verbs; default to updated rather than dropping.
	}
	return broker.JobEvent{Kind: kind, Queue: queue, JobID: tail, Timestamp: now}, true
}

// indexEventKind maps (index suffix, mutation verb) pairs to queue-level
// event kinds. Meta mutations are internal housekeeping and dropped, as is
// any verb outside the mapping.
func indexEventKind(suffix, op string) (broker.EventKind, bool) {
	switch suffix {
	case suffixWait:
		switch op {
		case "lpush", "rpush":
			return broker.EventWaiting, true
		case "lrem":
			return broker.EventDequeued, true
		}
	case suffixActive:
		switch op {
		case "lpush", "rpush":
			return broker.EventActive, true
		}
	case suffixCompleted:
		if op == "zadd" {
			return broker.EventCompleted, true
		}
	case suffixFailed:
		if op == "zadd" {
			return broker.EventFailed, true
		}
	case suffixDelayed:
		if op == "zadd" {
			return broker.EventDelayed, true
		}
	}
	return "", false
}
