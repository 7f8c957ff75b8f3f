package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes events to per-user pub/sub channels
// ("user:{id}"). Frontend gateways subscribe to fan the messages out over
// websockets.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier connects to Redis and verifies the connection before
// returning.
func NewRedisNotifier(ctx context.Context, addr, password string, db int) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("notify: redis ping: %w", err)
	}

	return &RedisNotifier{client: client}, nil
}

func (n *RedisNotifier) Publish(ctx context.Context, userID int64, event string, payload map[string]any) error {
	msg := map[string]any{
		"type":      event,
		"data":      payload,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	channel := fmt.Sprintf("user:%d", userID)
	if err := n.client.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("notify: publish %s to %s: %w", event, channel, err)
	}
	return nil
}

func (n *RedisNotifier) Close() error { return n.client.Close() }
