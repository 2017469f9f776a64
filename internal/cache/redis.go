package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"triage-assistant/internal/core"
	"triage-assistant/pkg"
)

// DefaultSessionTTL bounds how long an idle screening is kept.
const DefaultSessionTTL = 24 * time.Hour

// RedisStore keeps sessions as JSON values with a TTL.  Finished sessions are
// also indexed in a sorted set scored by completion time.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a store.  A zero ttl uses DefaultSessionTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl, prefix: "triage"}
}

func (c *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:session:%s", c.prefix, id)
}

func (c *RedisStore) completedKey() string {
	return c.prefix + ":completed"
}

func (c *RedisStore) SaveSession(ctx context.Context, s *pkg.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(s.ID), data, c.ttl)
	if s.Complete && s.CompletedAt != nil {
		pipe.ZAdd(ctx, c.completedKey(), redis.Z{
			Score:  float64(s.CompletedAt.UnixMilli()),
			Member: s.ID,
		})
	} else {
		pipe.ZRem(ctx, c.completedKey(), s.ID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisStore) GetSession(ctx context.Context, id string) (*pkg.Session, error) {
	data, err := c.client.Get(ctx, c.key(id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrSessionNotFound)
	}
	if err != nil {
		return nil, err
	}
	var s pkg.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	return &s, nil
}

// ListCompleted reads the newest finished sessions.  Index entries whose
// session expired are pruned.
func (c *RedisStore) ListCompleted(ctx context.Context, limit int) ([]pkg.SessionPreview, error) {
	ids, err := c.client.ZRevRange(ctx, c.completedKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var (
		out   []pkg.SessionPreview
		stale []any
	)
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var s pkg.Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, err
		}
		if s.CompletedAt == nil {
			continue
		}
		out = append(out, preview(&s))
	}
	if len(stale) > 0 {
		c.client.ZRem(ctx, c.completedKey(), stale...)
	}
	return out, nil
}

// RedisNotifier announces finished sessions over Redis pub/sub.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, sessionID string) error {
	return n.client.Publish(ctx, n.channel, sessionID).Err()
}

// Listen yields session IDs published on the channel until ctx is done.
func (n *RedisNotifier) Listen(ctx context.Context) (<-chan string, error) {
	sub := n.client.Subscribe(ctx, n.channel)
	// wait for the subscription confirmation
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}
	ch := make(chan string)
	go func() {
		defer func() {
			sub.Close()
			close(ch)
		}()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case ch <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
