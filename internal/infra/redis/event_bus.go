package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"quiz-campaign-service/internal/domain"
)

// EventBus fans analytics events out over Redis pub/sub, one channel per
// campaign, so live admin feeds work across service instances. Publishing
// is best-effort: a dropped event only affects dashboards, never the
// participant path.
type EventBus struct {
	client *redis.Client
}

func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

func (b *EventBus) Publish(ctx context.Context, event domain.AnalyticsEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channel(event.CampaignID), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe streams events for one campaign until the context is
// canceled. The caller must invoke the returned cancel function.
func (b *EventBus) Subscribe(ctx context.Context, campaignID int64) (<-chan domain.AnalyticsEvent, func(), error) {
	sub := b.client.Subscribe(ctx, channel(campaignID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe campaign %d: %w", campaignID, err)
	}

	out := make(chan domain.AnalyticsEvent, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event domain.AnalyticsEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}

func channel(campaignID int64) string {
	return "quiz:events:" + strconv.FormatInt(campaignID, 10)
}
