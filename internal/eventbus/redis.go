package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultStream = "authcore:events"

// RedisPublisher fans envelopes out to a redis stream, where external
// consumers (mailers, audit) pick them up.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, stream: defaultStream}
}

func (p *RedisPublisher) Publish(ctx context.Context, envelope Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("error while marshaling envelope: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"source":     envelope.Source,
			"detailType": envelope.DetailType,
			"payload":    payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("error while publishing to stream %q: %w", p.stream, err)
	}

	return nil
}
