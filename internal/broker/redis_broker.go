package broker

import (
	"context"
	"encoding/json"

	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const EventsChannel = "travel:events"

// RedisEventBroker implements EventBroker with Redis pub/sub
type RedisEventBroker struct {
	client *redis.Client
}

func NewRedisEventBroker(ctx context.Context, redisURL string) (*RedisEventBroker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisEventBroker{client: client}, nil
}

// Client exposes the underlying connection for the rate limiter and health check
func (r *RedisEventBroker) Client() *redis.Client {
	return r.client
}

func (r *RedisEventBroker) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, EventsChannel, data).Err()
}

// Subscribe opens a dedicated pub/sub connection per caller
func (r *RedisEventBroker) Subscribe(ctx context.Context) (<-chan Event, error) {
	pubsub := r.client.Subscribe(ctx, EventsChannel)

	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	events := make(chan Event, 100)

	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Log.Warn("Dropping malformed lifecycle event",
						zap.String("channel", msg.Channel),
						zap.Error(err),
					)
					continue
				}

				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

func (r *RedisEventBroker) Close() error {
	return r.client.Close()
}
