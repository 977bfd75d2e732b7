package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChangeFeedRepository moves booking change events over Redis pub/sub.
type ChangeFeedRepository struct {
	client redis.UniversalClient
}

// NewChangeFeedRepository constructs the repository.
func NewChangeFeedRepository(client redis.UniversalClient) *ChangeFeedRepository {
	return &ChangeFeedRepository{client: client}
}

// Publish sends payload to every channel.
func (r *ChangeFeedRepository) Publish(ctx context.Context, payload []byte, channels ...string) error {
	for _, channel := range channels {
		if err := r.client.Publish(ctx, keyPrefix+channel, payload).Err(); err != nil {
			return fmt.Errorf("redis publish %s: %w", channel, err)
		}
	}
	return nil
}

// Subscribe streams payloads from the channels until ctx is cancelled or the returned close func runs.
func (r *ChangeFeedRepository) Subscribe(ctx context.Context, channels ...string) (<-chan []byte, func() error, error) {
	names := make([]string, len(channels))
	for i, channel := range channels {
		names[i] = keyPrefix + channel
	}
	sub := r.client.Subscribe(ctx, names...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}
