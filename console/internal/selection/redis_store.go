package selection

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the selection under one key and publishes every change on
// a channel of the same name.
type RedisStore struct {
	rdb     *redis.Client
	key     string
	timeout time.Duration
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "trackdash:selection"
	}
	return &RedisStore{rdb: rdb, key: key, timeout: 3 * time.Second}
}

func (r *RedisStore) Load() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	id, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

func (r *RedisStore) Save(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.key, id, 0)
		p.Publish(ctx, r.key, id)
		return nil
	})
	return err
}

func (r *RedisStore) Watch(ctx context.Context) (<-chan string, error) {
	sub := r.rdb.Subscribe(ctx, r.key)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	msgs := sub.Channel()
	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- m.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
