package app

import (
	"context"

	"quiz-campaign-service/internal/domain"
)

// EventPublisher pushes an analytics event to a live feed.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.AnalyticsEvent) error
}

// FanoutRecorder writes events to durable storage and mirrors them to a
// live-feed publisher. Either side may be nil; both are best-effort from
// the caller's point of view, but a storage error is still reported so the
// service can log it.
type FanoutRecorder struct {
	store     AnalyticsRecorder
	publisher EventPublisher
}

func NewFanoutRecorder(store AnalyticsRecorder, publisher EventPublisher) *FanoutRecorder {
	return &FanoutRecorder{store: store, publisher: publisher}
}

func (r *FanoutRecorder) Record(ctx context.Context, event domain.AnalyticsEvent) error {
	var storeErr error
	if r.store != nil {
		storeErr = r.store.Record(ctx, event)
	}
	if r.publisher != nil {
		// feed-only; a dropped live update is not worth surfacing
		_ = r.publisher.Publish(ctx, event)
	}
	return storeErr
}
