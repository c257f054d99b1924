package http

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"quiz-campaign-service/internal/domain"
)

// EventSource streams analytics events for one campaign. The returned
// cancel function must be invoked to release the subscription.
type EventSource interface {
	Subscribe(ctx context.Context, campaignID int64) (<-chan domain.AnalyticsEvent, func(), error)
}

// LiveFeedHandler pushes campaign events to admin dashboards over a
// websocket, so result screens update without polling.
type LiveFeedHandler struct {
	events   EventSource
	upgrader websocket.Upgrader
}

func NewLiveFeedHandler(events EventSource) *LiveFeedHandler {
	return &LiveFeedHandler{
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and forwards campaign events until the
// client goes away.
func (h *LiveFeedHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.ParseInt(r.URL.Query().Get("campaign_id"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid campaign_id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	events, cancel, err := h.events.Subscribe(ctx, campaignID)
	if err != nil {
		_ = conn.WriteJSON(errorResponse{Error: errorBody{Code: "subscribe_failed", Message: err.Error()}})
		return
	}
	defer cancel()

	// Reader only detects disconnects; the feed is one-way.
	go func() {
		defer stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
