package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-campaign-service/internal/domain"
	"quiz-campaign-service/internal/infra/memory"
)

func TestLiveFeedStreamsCampaignEvents(t *testing.T) {
	bus := memory.NewEventBus()
	handler := NewLiveFeedHandler(bus)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/live", handler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/live?campaign_id=1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// the handler subscribes after the upgrade completes, so keep
	// publishing until the event comes through
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			// events for other campaigns must not arrive on this connection
			_ = bus.Publish(ctx, domain.AnalyticsEvent{CampaignID: 2, EventType: domain.EventQuizStarted})
			_ = bus.Publish(ctx, domain.AnalyticsEvent{CampaignID: 1, EventType: domain.EventGiftAssigned, SessionID: "abc"})
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	var event domain.AnalyticsEvent
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if event.CampaignID != 1 || event.EventType != domain.EventGiftAssigned {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestLiveFeedRejectsMissingCampaign(t *testing.T) {
	handler := NewLiveFeedHandler(memory.NewEventBus())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/live", handler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/ws/live")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
