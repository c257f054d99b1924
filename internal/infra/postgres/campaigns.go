// Package postgres implements the app repositories on Postgres via bun.
// The operations with concurrency invariants (participant create, gift
// claim, finalize) are expressed as single conditional statements so the
// database, not the application, arbitrates races.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quiz-campaign-service/internal/domain"
)

// CampaignRepository loads campaigns from Postgres.
type CampaignRepository struct {
	db *bun.DB
}

func NewCampaignRepository(db *bun.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) GetCampaign(ctx context.Context, campaignID int64) (domain.Campaign, error) {
	var campaign domain.Campaign
	err := r.db.NewSelect().
		Model(&campaign).
		Where("id = ?", campaignID).
		Where("archived_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("load campaign %d: %w", campaignID, err)
	}
	return campaign, nil
}

// Save validates and upserts a campaign. Used by seeding and admin-side
// collaborators; the quiz flow itself only reads.
func (r *CampaignRepository) Save(ctx context.Context, campaign *domain.Campaign) error {
	if err := campaign.Validate(); err != nil {
		return err
	}
	if campaign.ID == 0 {
		_, err := r.db.NewInsert().Model(campaign).Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert campaign: %w", err)
		}
		return nil
	}
	campaign.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().Model(campaign).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update campaign %d: %w", campaign.ID, err)
	}
	return nil
}

// Archive soft-deletes a campaign. Participants and gifts keep their
// rows; hard cascade deletes are deliberately not supported.
func (r *CampaignRepository) Archive(ctx context.Context, campaignID int64) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Campaign)(nil)).
		Set("archived_at = now()").
		Set("is_active = FALSE").
		Where("id = ?", campaignID).
		Where("archived_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("archive campaign %d: %w", campaignID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}
