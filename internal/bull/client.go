package bull

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kyled7/queue-vision/internal/broker"
)

// Client is the thin store layer over the broker. It owns the command
// connection and hands out subscriber connections built from the same
// options. Every operation reports failure through a tagged *broker.Error;
// nothing is retried silently (one send, one outcome).
type Client struct {
	cmd  *redis.Client
	opts *redis.Options
	conn broker.ConnInfo
}

// ScoredMember is one ordered-set member with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// Dial validates the endpoint URL, opens the command connection and waits
// for the first ready/error, bounded by timeout.
func Dial(ctx context.Context, endpoint string, timeout time.Duration) (*Client, error) {
	if !strings.HasPrefix(endpoint, "redis://") && !strings.HasPrefix(endpoint, "rediss://") {
		return nil, broker.Errorf(broker.KindInvalidArgument, "endpoint %q is not a redis URL", endpoint)
	}
	opts, err := redis.ParseURL(endpoint)
	if err != nil {
		return nil, broker.Wrap(broker.KindInvalidArgument, err, "parse endpoint")
	}
	// One send, one outcome.
	opts.MaxRetries = -1
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts.DialTimeout = timeout

	c := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, wrapStoreErr(err, "connect")
	}

	host, port := splitAddr(opts.Addr)
	return &Client{
		cmd:  c,
		opts: opts,
		conn: broker.ConnInfo{Host: host, Port: port, DB: opts.DB},
	}, nil
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// Conn reports the endpoint descriptor captured at dial time.
func (c *Client) Conn() broker.ConnInfo { return c.conn }

// Close attempts a clean shutdown of the command connection. go-redis drains
// in-flight requests on Close; a failed close still releases the underlying
// sockets, so the error is reported but never retried.
func (c *Client) Close() error {
	if err := c.cmd.Close(); err != nil {
		return broker.Wrap(broker.KindTransport, err, "close command connection")
	}
	return nil
}

// LRange reads list members in [start, stop] in list order.
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.cmd.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrapStoreErr(err, "lrange "+key)
	}
	return vals, nil
}

// LLen returns the cardinality of a list.
func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	n, err := c.cmd.LLen(ctx, key).Result()
	if err != nil {
		return 0, wrapStoreErr(err, "llen "+key)
	}
	return n, nil
}

// LPos probes a list for a member's position. present is false when the
// member is absent.
func (c *Client) LPos(ctx context.Context, key, member string) (int64, bool, error) {
	pos, err := c.cmd.LPos(ctx, key, member, redis.LPosArgs{}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapStoreErr(err, "lpos "+key)
	}
	return pos, true, nil
}

// ZRange reads ordered-set members in [start, stop] ascending by score.
func (c *Client) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.cmd.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrapStoreErr(err, "zrange "+key)
	}
	return vals, nil
}

// ZRevRange reads ordered-set members in [start, stop] descending by score.
func (c *Client) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.cmd.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrapStoreErr(err, "zrevrange "+key)
	}
	return vals, nil
}

// ZRevRangeWithScores reads members and scores in [start, stop] descending.
func (c *Client) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	zs, err := c.cmd.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrapStoreErr(err, "zrevrange withscores "+key)
	}
	out := make([]ScoredMember, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		out[i] = ScoredMember{Member: member, Score: z.Score}
	}
	return out, nil
}

// ZCard returns the cardinality of an ordered set.
func (c *Client) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := c.cmd.ZCard(ctx, key).Result()
	if err != nil {
		return 0, wrapStoreErr(err, "zcard "+key)
	}
	return n, nil
}

// ZScore probes an ordered set for a member's score. present is false when
// the member is absent.
func (c *Client) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := c.cmd.ZScore(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapStoreErr(err, "zscore "+key)
	}
	return score, true, nil
}

// HGetAll reads every field of a record. The empty map means the key does
// not exist.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := c.cmd.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrapStoreErr(err, "hgetall "+key)
	}
	return fields, nil
}

// ScanKeys cursor-scans the keyspace for keys matching pattern until the
// cursor returns to the start sentinel.
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.cmd.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, wrapStoreErr(err, "scan "+pattern)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// NotifyKeyspaceEvents reads the broker's notify-keyspace-events setting.
// supported is false when the broker does not expose CONFIG (some proxies
// and test servers don't); callers should then skip the verification.
func (c *Client) NotifyKeyspaceEvents(ctx context.Context) (value string, supported bool) {
	res, err := c.cmd.ConfigGet(ctx, "notify-keyspace-events").Result()
	if err != nil {
		return "", false
	}
	v, ok := res["notify-keyspace-events"]
	if !ok {
		return "", false
	}
	return v, true
}

// Subscriber is the dedicated subscriber connection with its pattern
// subscription. Messages arrive on Channel(); Close unsubscribes and
// releases both the subscription and the underlying connection.
type Subscriber struct {
	client *redis.Client
	pubsub *redis.PubSub
}

// Channel returns the stream of (pattern, channel, payload) messages.
func (s *Subscriber) Channel() <-chan *redis.Message { return s.pubsub.Channel() }

// Close unsubscribes all patterns, then closes the subscription and the
// connection. A failed graceful unsubscribe falls through to the forced
// close; the connection is released on both paths.
func (s *Subscriber) Close() error {
	unsubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.pubsub.PUnsubscribe(unsubCtx)
	err := s.pubsub.Close()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return broker.Wrap(broker.KindTransport, err, "close subscriber connection")
	}
	return nil
}

// OpenSubscriber opens the subscriber connection and subscribes to the glob
// pattern. The first confirmation is awaited so a returned Subscriber is
// known to be receiving.
func (c *Client) OpenSubscriber(ctx context.Context, pattern string) (*Subscriber, error) {
	sub := redis.NewClient(c.opts)
	ps := sub.PSubscribe(ctx, pattern)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		_ = sub.Close()
		return nil, wrapStoreErr(err, "psubscribe "+pattern)
	}
	return &Subscriber{client: sub, pubsub: ps}, nil
}

// wrapStoreErr tags a store-layer failure: caller cancellation maps to
// Cancelled, everything else to Transport.
func wrapStoreErr(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return broker.Wrap(broker.KindCancelled, err, op)
	}
	return broker.Wrap(broker.KindTransport, err, op)
}
