package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"quiz-campaign-service/internal/domain"
)

// GiftRepository manages gift inventory. TryClaim is the race-safe heart
// of allocation: a single conditional UPDATE whose affected-row count
// decides whether this request got a unit.
type GiftRepository struct {
	db *bun.DB
}

func NewGiftRepository(db *bun.DB) *GiftRepository {
	return &GiftRepository{db: db}
}

// EligibleGifts returns gifts whose score window contains the score and
// which still have remaining capacity, ordered by min_score then id so
// allocation is deterministic when windows overlap.
func (r *GiftRepository) EligibleGifts(ctx context.Context, campaignID int64, score int) ([]domain.Gift, error) {
	var gifts []domain.Gift
	err := r.db.NewSelect().
		Model(&gifts).
		Where("campaign_id = ?", campaignID).
		Where("min_score <= ?", score).
		Where("max_score IS NULL OR max_score >= ?", score).
		Where("max_quantity IS NULL OR used_count < max_quantity").
		Order("min_score ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible gifts: %w", err)
	}
	return gifts, nil
}

// TryClaim increments used_count only while capacity remains. Zero rows
// affected means another request drained the inventory first; the caller
// falls through to the next candidate.
func (r *GiftRepository) TryClaim(ctx context.Context, giftID int64) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Gift)(nil)).
		Set("used_count = used_count + 1").
		Where("id = ?", giftID).
		Where("max_quantity IS NULL OR used_count < max_quantity").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("claim gift %d: %w", giftID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CodeExists checks issued codes for the gift against participant rows.
func (r *GiftRepository) CodeExists(ctx context.Context, giftID int64, code string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*domain.Participant)(nil)).
		Where("gift_id = ?", giftID).
		Where("gift_code = ?", code).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check gift code: %w", err)
	}
	return exists, nil
}
