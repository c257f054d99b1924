package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-campaign-service/internal/domain"
)

func TestEventBusDeliversPerCampaign(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewEventBus(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, stop, err := bus.Subscribe(ctx, 1)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	// an event for another campaign must not reach this subscriber
	if err := bus.Publish(ctx, domain.AnalyticsEvent{CampaignID: 2, EventType: domain.EventQuizStarted}); err != nil {
		t.Fatalf("publish campaign 2: %v", err)
	}
	if err := bus.Publish(ctx, domain.AnalyticsEvent{CampaignID: 1, EventType: domain.EventQuizCompleted, SessionID: "abc"}); err != nil {
		t.Fatalf("publish campaign 1: %v", err)
	}

	select {
	case event := <-events:
		if event.CampaignID != 1 || event.EventType != domain.EventQuizCompleted {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}
