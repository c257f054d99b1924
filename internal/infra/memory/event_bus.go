package memory

import (
	"context"
	"sync"

	"quiz-campaign-service/internal/domain"
)

// EventBus is an in-process pub/sub broker for analytics events, used
// when Redis is not configured. Slow subscribers drop events rather than
// blocking the publisher.
type EventBus struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.AnalyticsEvent]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[int64]map[chan domain.AnalyticsEvent]struct{})}
}

func (b *EventBus) Publish(_ context.Context, event domain.AnalyticsEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[event.CampaignID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *EventBus) Subscribe(_ context.Context, campaignID int64) (<-chan domain.AnalyticsEvent, func(), error) {
	ch := make(chan domain.AnalyticsEvent, 16)

	b.mu.Lock()
	set, ok := b.subscribers[campaignID]
	if !ok {
		set = make(map[chan domain.AnalyticsEvent]struct{})
		b.subscribers[campaignID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}
