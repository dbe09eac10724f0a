package brokersvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/elimuhq/elimu/core"
)

const eventsChannel = "elimu.events"

type redisBroker struct {
	client *redis.Client
	logger core.Logger
}

var _ core.Broker = (*redisBroker)(nil)

// NewRedisBroker fans events out through a Redis PUB/SUB channel so every API
// instance sees every event. Redis PUB/SUB is itself at-most-once: nothing is
// persisted and absent subscribers miss the message, which matches the
// advisory nature of events.
func NewRedisBroker(logger core.Logger, conf *core.Config) (*redisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &redisBroker{client: client, logger: logger}, nil
}

func (b *redisBroker) Publish(ctx context.Context, evt core.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		b.logger.Error(fmt.Sprintf("marshaling event %q: %v", evt.Name, err), err)
		return
	}
	if err = b.client.Publish(ctx, eventsChannel, data).Err(); err != nil {
		b.logger.Error(fmt.Sprintf("publishing event %q: %v", evt.Name, err), err)
	}
}

func (b *redisBroker) Subscribe(ctx context.Context) (<-chan core.Event, func()) {
	sub := b.client.Subscribe(ctx, eventsChannel)
	ch := make(chan core.Event, subBufSize)

	go func() {
		defer close(ch)
		for msg := range sub.Channel() {
			var evt core.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn(fmt.Sprintf("dropping malformed event: %v", err))
				continue
			}
			select {
			case ch <- evt:
			default: // subscriber is full; drop rather than block
			}
		}
	}()

	cancel := func() { _ = sub.Close() }

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel
}

func (b *redisBroker) Close() error {
	return b.client.Close()
}
