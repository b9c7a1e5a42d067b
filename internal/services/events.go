package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"careconnect-backend/internal/models"
)

const publishTimeout = 2 * time.Second

// EventPublisher receives connection lifecycle events. Implementations must
// not block the connection for long and never fail it.
type EventPublisher interface {
	Publish(ctx context.Context, event models.SessionEvent)
}

type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, models.SessionEvent) {}

// RedisEventPublisher sends events via Redis pub/sub
type RedisEventPublisher struct {
	redis   *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisEventPublisher(client *redis.Client, channel string, logger *zap.Logger) *RedisEventPublisher {
	return &RedisEventPublisher{
		redis:   client,
		channel: channel,
		logger:  logger.Named("events"),
	}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event models.SessionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("Failed to encode session event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	// the disconnect event is published after the connection context is gone
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.redis.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Warn("Failed to publish session event",
			zap.String("type", event.Type),
			zap.String("channel", p.channel),
			zap.Error(err))
	}
}
