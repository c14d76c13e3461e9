package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xaenox/focusguard/internal/models"
)

// RedisPusher publishes notifications on "<channel>:<username>" so other
// processes can fan them out.
type RedisPusher struct {
	client  *redis.Client
	channel string
}

func NewRedisPusher(client *redis.Client, channel string) *RedisPusher {
	return &RedisPusher{client: client, channel: channel}
}

// NewRedisPusherFromURL parses a redis:// URL and checks the connection.
func NewRedisPusherFromURL(ctx context.Context, url, channel string) (*RedisPusher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisPusher(client, channel), nil
}

func (p *RedisPusher) Channel(username string) string {
	return p.channel + ":" + username
}

func (p *RedisPusher) Push(ctx context.Context, username string, n *models.NotificationEvent) error {
	payload, err := json.Marshal(Envelope{Type: MessageDistraction, Data: n})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(username), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (p *RedisPusher) Close() error {
	return p.client.Close()
}
