// Package fulfillment pushes assigned gifts to an external fulfillment
// API. The call is best-effort: the quiz flow fires it in the background
// and a failure only leaves the gift in "assigned" (pending) state.
package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"quiz-campaign-service/internal/domain"
)

// WebhookNotifier POSTs gift assignments to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type notification struct {
	ParticipantID int64  `json:"participant_id"`
	GiftID        int64  `json:"gift_id"`
	GiftName      string `json:"gift_name"`
	GiftValue     string `json:"gift_value"`
	Code          string `json:"code"`
}

func (n *WebhookNotifier) NotifyGiftAssigned(ctx context.Context, participantID int64, gift domain.GiftResult) error {
	body, err := json.Marshal(notification{
		ParticipantID: participantID,
		GiftID:        gift.GiftID,
		GiftName:      gift.Name,
		GiftValue:     gift.Value,
		Code:          gift.Code,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("fulfillment endpoint returned %s", resp.Status)
	}
	return nil
}
