package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig represents the settings for a Redis backed channel.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Namespaces the topics so several networks can share a server.
}

// Redis is a Channel backed by Redis PUBLISH/SUBSCRIBE. Every node of a
// network connects to the same server and receives its own messages too.
type Redis struct {
	client *redis.Client
	prefix string

	mu   sync.Mutex
	subs []*redis.PubSub
	wg   sync.WaitGroup
}

// NewRedis connects to the Redis server and checks it is reachable.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	r := Redis{
		client: client,
		prefix: cfg.Prefix,
	}

	return &r, nil
}

// Publish sends the message to every subscriber of the topic.
func (r *Redis) Publish(ctx context.Context, topic string, data []byte) error {
	return r.client.Publish(ctx, r.prefix+topic, data).Err()
}

// Subscribe registers the handler for the topic. The subscription is
// confirmed by the server before Subscribe returns.
func (r *Redis) Subscribe(topic string, handler Handler) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := r.client.Subscribe(ctx, r.prefix+topic)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		for msg := range sub.Channel() {
			handler(topic, []byte(msg.Payload))
		}
	}()

	return nil
}

// Close ends all subscriptions and closes the connection pool.
func (r *Redis) Close() error {
	r.mu.Lock()
	for _, sub := range r.subs {
		sub.Close()
	}
	r.subs = nil
	r.mu.Unlock()

	r.wg.Wait()

	return r.client.Close()
}
