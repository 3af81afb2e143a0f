package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events on Redis pub/sub: one channel per event
// type plus one per concerned user.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// TypeChannel is the channel carrying every event of type t.
func TypeChannel(t Type) string {
	return "agora:events:" + string(t)
}

// UserChannel is the channel carrying events that concern userID.
func UserChannel(userID uint) string {
	return fmt.Sprintf("agora:user:%d", userID)
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if p.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, TypeChannel(ev.Type), payload)
		for _, id := range ev.Users {
			pipe.Publish(ctx, UserChannel(id), payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Type, err)
	}
	return nil
}
