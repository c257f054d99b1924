package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-campaign-service/internal/domain"
)

const uniqueViolation = "23505"

// ParticipantRepository owns participant rows. Uniqueness on
// (campaign_id, phone) is enforced by the database index, never by a
// check-then-insert, so concurrent starts with the same phone cannot both
// succeed.
type ParticipantRepository struct {
	db *bun.DB
}

func NewParticipantRepository(db *bun.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) Create(ctx context.Context, p *domain.Participant) error {
	_, err := r.db.NewInsert().Model(p).Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
			return domain.ErrDuplicateParticipation
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (r *ParticipantRepository) HasParticipated(ctx context.Context, campaignID int64, phone string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*domain.Participant)(nil)).
		Where("campaign_id = ?", campaignID).
		Where("phone = ?", phone).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check participation: %w", err)
	}
	return exists, nil
}

func (r *ParticipantRepository) Count(ctx context.Context, campaignID int64) (int, error) {
	count, err := r.db.NewSelect().
		Model((*domain.Participant)(nil)).
		Where("campaign_id = ?", campaignID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

// Finalize writes the attempt outcome exactly once. The completed_at
// guard makes the update a one-shot: a second submission affects zero
// rows and reports ErrAlreadyCompleted.
func (r *ParticipantRepository) Finalize(ctx context.Context, participantID int64, score, totalQuestions, completionTime int, completedAt time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Participant)(nil)).
		Set("score = ?", score).
		Set("total_questions = ?", totalQuestions).
		Set("completion_time = ?", completionTime).
		Set("completed_at = ?", completedAt).
		Where("id = ?", participantID).
		Where("completed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("finalize participant %d: %w", participantID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAlreadyCompleted
	}
	return nil
}

func (r *ParticipantRepository) AttachGift(ctx context.Context, participantID, giftID int64, code string) error {
	_, err := r.db.NewUpdate().
		Model((*domain.Participant)(nil)).
		Set("gift_id = ?", giftID).
		Set("gift_code = ?", code).
		Set("gift_status = ?", domain.GiftStatusAssigned).
		Where("id = ?", participantID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("attach gift to participant %d: %w", participantID, err)
	}
	return nil
}

// UpdateGiftStatus transitions the gift lifecycle on a finalized row
// (assigned -> claimed/expired). Used by admin-side collaborators.
func (r *ParticipantRepository) UpdateGiftStatus(ctx context.Context, participantID int64, status domain.GiftStatus) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Participant)(nil)).
		Set("gift_status = ?", status).
		Where("id = ?", participantID).
		Where("gift_id IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update gift status for participant %d: %w", participantID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteStaleUncompleted reclaims abandoned attempts older than maxAge so
// the phone number can enter again. Returns the number of rows removed.
func (r *ParticipantRepository) DeleteStaleUncompleted(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*domain.Participant)(nil)).
		Where("completed_at IS NULL").
		Where("started_at < ?", time.Now().Add(-maxAge)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete stale participants: %w", err)
	}
	return res.RowsAffected()
}
