package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-sla/internal/sla"
)

const redisNotifiedPrefix = "sla:notified:"

type redisNotificationLog struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisNotificationLog stores one key per ticket checkpoint. A zero ttl keeps keys forever.
func NewRedisNotificationLog(client *redis.Client, ttl time.Duration) NotificationLog {
	return &redisNotificationLog{client: client, ttl: ttl}
}

func (l *redisNotificationLog) HasBeenNotified(ctx context.Context, ticketID string, checkpoint sla.Checkpoint) (bool, error) {
	n, err := l.client.Exists(ctx, redisNotifiedKey(ticketID, checkpoint)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *redisNotificationLog) MarkNotified(ctx context.Context, ticketID string, checkpoint sla.Checkpoint) error {
	return l.client.SetNX(ctx, redisNotifiedKey(ticketID, checkpoint), time.Now().UTC().Format(time.RFC3339Nano), l.ttl).Err()
}

func redisNotifiedKey(ticketID string, checkpoint sla.Checkpoint) string {
	return redisNotifiedPrefix + ticketID + ":" + string(checkpoint)
}
