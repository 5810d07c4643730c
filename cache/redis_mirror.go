package cache

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisMirror shares cache invalidation across kernel instances: Publish
// announces an evicted key on a shared channel, Subscribe drives a callback
// for keys other instances evicted.
type RedisMirror struct {
	client  *redis.Client
	channel string
}

// NewRedisMirror connects to url and returns a mirror publishing/subscribing
// on channel. Returns an error if url cannot be parsed.
func NewRedisMirror(url, channel string) (*RedisMirror, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "cache: invalid redis url")
	}
	return &RedisMirror{client: redis.NewClient(opt), channel: channel}, nil
}

// Ping verifies connectivity to Redis.
func (m *RedisMirror) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "cache: redis ping failed")
	}
	return nil
}

// Publish announces that key was evicted locally so peers can evict it too.
func (m *RedisMirror) Publish(ctx context.Context, key string) {
	m.client.Publish(ctx, m.channel, key)
}

// Subscribe runs onInvalidate for every key published by a peer, in its own
// goroutine. The subscription uses a background context and is not tied to
// any caller's context.
func (m *RedisMirror) Subscribe(onInvalidate func(key string)) {
	sub := m.client.Subscribe(context.Background(), m.channel)
	ch := sub.Channel()
	go func() {
		for msg := range ch {
			onInvalidate(msg.Payload)
		}
	}()
}

// Close releases the underlying Redis connection.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
