package queue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/funding-cli/internal/model"
)

// DefaultRedisKey is the hash that holds queue items.
const DefaultRedisKey = "funding:queue"

// Redis is a Store that keeps items as JSON values in a single hash keyed
// by item id.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis connects to addr and pings it.
func NewRedis(ctx context.Context, addr, key string) (*Redis, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "queue: redis ping %s", addr)
	}
	return NewRedisWithClient(client, key), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

func (s *Redis) Close() error {
	return s.client.Close()
}

func (s *Redis) Add(ctx context.Context, item model.QueueItem) (model.QueueItem, error) {
	item = prepare(item)
	b, err := json.Marshal(item)
	if err != nil {
		return model.QueueItem{}, eris.Wrap(err, "queue: redis marshal")
	}
	if err := s.client.HSet(ctx, s.key, item.ID, b).Err(); err != nil {
		return model.QueueItem{}, eris.Wrapf(err, "queue: redis hset %s", item.ID)
	}
	return item, nil
}

func (s *Redis) Get(ctx context.Context, id string) (model.QueueItem, error) {
	raw, err := s.client.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return model.QueueItem{}, ErrNotFound
	}
	if err != nil {
		return model.QueueItem{}, eris.Wrapf(err, "queue: redis hget %s", id)
	}
	var item model.QueueItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return model.QueueItem{}, eris.Wrapf(err, "queue: redis decode %s", id)
	}
	return item, nil
}

func (s *Redis) List(ctx context.Context) ([]model.QueueItem, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, eris.Wrap(err, "queue: redis hgetall")
	}
	items := make([]model.QueueItem, 0, len(all))
	for id, raw := range all {
		var item model.QueueItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, eris.Wrapf(err, "queue: redis decode %s", id)
		}
		items = append(items, item)
	}
	model.SortQueue(items)
	return items, nil
}

func (s *Redis) Complete(ctx context.Context, id string) (bool, error) {
	n, err := s.client.HDel(ctx, s.key, id).Result()
	if err != nil {
		return false, eris.Wrapf(err, "queue: redis hdel %s", id)
	}
	return n > 0, nil
}

func (s *Redis) Len(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.key).Result()
	if err != nil {
		return 0, eris.Wrap(err, "queue: redis hlen")
	}
	return int(n), nil
}
