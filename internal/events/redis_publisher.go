package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher транслирует события в канал Redis pub/sub для внешних потребителей.
type RedisPublisher struct {
	rdb     redisClient
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) HandleDonationSettled(ctx context.Context, e DonationSettled) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis publisher: marshal %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publisher: publish to %s %w", p.channel, err)
	}
	return nil
}
