package fundraising

import (
	"context"
	"errors"
	"time"

	"bantudesa/pkg/db/option"

	"gorm.io/gorm"
)

// ActivityRepository holds the store-side statements that need more than the
// generic repository: approved-only aggregates and the conditional status
// writes that keep transitions single-shot.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) WithTrx(tx *gorm.DB) *ActivityRepository {
	if tx == nil {
		return r
	}
	return &ActivityRepository{db: tx}
}

// LockActivity loads the activity with a row lock. Returns nil, nil if absent.
func (r *ActivityRepository) LockActivity(ctx context.Context, id string) (*Activity, error) {
	var a Activity
	err := r.db.WithContext(ctx).Scopes(option.LockingUpdate).Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Aggregates sums APPROVED donations per activity. Activities without any
// approved donation are absent from the map.
func (r *ActivityRepository) Aggregates(ctx context.Context, activityIDs ...string) (map[string]Aggregate, error) {
	out := make(map[string]Aggregate, len(activityIDs))
	if len(activityIDs) == 0 {
		return out, nil
	}

	var rows []Aggregate
	err := r.db.WithContext(ctx).Model(&Donation{}).
		Select("activity_id, COALESCE(SUM(amount), 0) AS collected, COUNT(*) AS donor_count").
		Where("activity_id IN ? AND status = ?", activityIDs, DonationStatusApproved).
		Group("activity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.ActivityID] = row
	}
	return out, nil
}

func (r *ActivityRepository) ApprovedSum(ctx context.Context, activityID string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&Donation{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("activity_id = ? AND status = ?", activityID, DonationStatusApproved).
		Scan(&sum).Error
	return sum, err
}

func (r *ActivityRepository) HasApproved(ctx context.Context, activityID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Donation{}).
		Where("activity_id = ? AND status = ?", activityID, DonationStatusApproved).
		Count(&count).Error
	return count > 0, err
}

// VerifyDonation moves a donation out of PENDING. It reports false when the row
// was no longer PENDING at write time.
func (r *ActivityRepository) VerifyDonation(ctx context.Context, id string, to DonationStatus, verifier string, at time.Time, note string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Donation{}).
		Where("id = ? AND status = ?", id, DonationStatusPending).
		Updates(map[string]any{
			"status":      to,
			"verified_by": verifier,
			"verified_at": at,
			"admin_note":  note,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CompleteIfReached flips ACTIVE to COMPLETED when collected covers the
// target. Only the caller that performs the flip gets true.
func (r *ActivityRepository) CompleteIfReached(ctx context.Context, activityID string, collected int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Activity{}).
		Where("id = ? AND status = ? AND target_amount <= ?", activityID, ActivityStatusActive, collected).
		Updates(map[string]any{
			"status":     ActivityStatusCompleted,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Cancel flips ACTIVE to CANCELLED.
func (r *ActivityRepository) Cancel(ctx context.Context, activityID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Activity{}).
		Where("id = ? AND status = ?", activityID, ActivityStatusActive).
		Updates(map[string]any{
			"status":     ActivityStatusCancelled,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteUnapprovedDonations removes every non-APPROVED donation of the activity.
func (r *ActivityRepository) DeleteUnapprovedDonations(ctx context.Context, activityID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("activity_id = ? AND status <> ?", activityID, DonationStatusApproved).
		Delete(&Donation{})
	return res.RowsAffected, res.Error
}

// DeleteActivityIfUnfunded deletes the activity only while no APPROVED donation
// references it.
func (r *ActivityRepository) DeleteActivityIfUnfunded(ctx context.Context, activityID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ?", activityID).
		Where("NOT EXISTS (SELECT 1 FROM donations WHERE donations.activity_id = ? AND donations.status = ?)", activityID, DonationStatusApproved).
		Delete(&Activity{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SweepPending deletes PENDING donations created at or before cutoff.
func (r *ActivityRepository) SweepPending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at <= ?", DonationStatusPending, cutoff).
		Delete(&Donation{})
	return res.RowsAffected, res.Error
}
