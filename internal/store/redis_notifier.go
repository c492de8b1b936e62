package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glocktrack/glocktrack/internal/logger"
	"github.com/redis/go-redis/v9"
)

const changeChannel = "glocktrack:changes"

// RedisNotifier broadcasts change events over Redis pub/sub. It lets a
// separate process (a sync daemon, a second UI) observe the same store
// file without polling it.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier connects to Redis and verifies the connection
func NewRedisNotifier(redisHost, redisPort string) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password:     "", // no password
		DB:           0,  // default DB
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisNotifier{client: client}, nil
}

// Publish broadcasts the event on the shared channel
func (n *RedisNotifier) Publish(ctx context.Context, event ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal change event", "error", err)
		return
	}
	if err := n.client.Publish(ctx, changeChannel, payload).Err(); err != nil {
		logger.Error("Failed to publish change event", "error", err)
	}
}

// Subscribe listens on the shared channel and decodes events
func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan ChangeEvent, func()) {
	sub := n.client.Subscribe(ctx, changeChannel)
	out := make(chan ChangeEvent, 16)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn("Discarding malformed change event", "error", err)
				continue
			}
			select {
			case out <- event:
			default:
			}
		}
	}()

	cancel := func() {
		if err := sub.Close(); err != nil {
			logger.Warn("Failed to close Redis subscription", "error", err)
		}
	}
	return out, cancel
}

// Close releases the Redis connection
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
