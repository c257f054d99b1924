package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"quiz-campaign-service/internal/domain"
)

// AnalyticsRepository appends events to the analytics_events table.
// The core only writes; dashboards read it through their own queries.
type AnalyticsRepository struct {
	db *bun.DB
}

func NewAnalyticsRepository(db *bun.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) Record(ctx context.Context, event domain.AnalyticsEvent) error {
	if event.Payload == "" {
		event.Payload = "{}"
	}
	if _, err := r.db.NewInsert().Model(&event).Exec(ctx); err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}
