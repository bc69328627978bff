package fundraising

import (
	"context"
	"strings"
	"time"

	"bantudesa/pkg/access"
	"bantudesa/pkg/errutil"

	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateActivityInput struct {
	Title        string
	Description  string
	PhotoURL     string
	QrisURL      string
	TargetAmount int64
	StartDate    time.Time
	EndDate      time.Time
	Schedule     datatypes.JSON
	Requirements datatypes.JSON
	Gallery      datatypes.JSON
}

// UpdateActivityInput is a partial update; nil fields are left untouched.
type UpdateActivityInput struct {
	Title        *string
	Description  *string
	PhotoURL     *string
	QrisURL      *string
	TargetAmount *int64
	StartDate    *time.Time
	EndDate      *time.Time
	Schedule     *datatypes.JSON
	Requirements *datatypes.JSON
	Gallery      *datatypes.JSON
}

func validateActivity(a *Activity) error {
	var details []errutil.Detail
	if strings.TrimSpace(a.Title) == "" {
		details = append(details, errutil.Detail{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(a.Description) == "" {
		details = append(details, errutil.Detail{Field: "description", Message: "description is required"})
	}
	if a.TargetAmount <= 0 {
		details = append(details, errutil.Detail{Field: "target_amount", Message: "target amount must be greater than zero"})
	}
	if a.StartDate.IsZero() {
		details = append(details, errutil.Detail{Field: "start_date", Message: "start date is required"})
	}
	if a.EndDate.IsZero() {
		details = append(details, errutil.Detail{Field: "end_date", Message: "end date is required"})
	} else if !a.EndDate.After(a.StartDate) {
		details = append(details, errutil.Detail{Field: "end_date", Message: "end date must be after start date"})
	}

	if len(details) > 0 {
		return errutil.ValidationFailed("invalid activity", nil, errutil.WithDetails(details...))
	}
	return nil
}

func (s *Service) CreateActivity(ctx context.Context, admin access.Actor, in CreateActivityInput) (*Activity, error) {
	ctx, span := tracer.Start(ctx, "fundraising.CreateActivity")
	defer span.End()

	if !s.authz.Allow(admin, access.ResourceActivity, access.ActionCreate) {
		return nil, errForbidden
	}

	now := s.now()
	activity := &Activity{
		ID:           s.node.Generate().String(),
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		PhotoURL:     strings.TrimSpace(in.PhotoURL),
		QrisURL:      strings.TrimSpace(in.QrisURL),
		TargetAmount: in.TargetAmount,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		CreatorID:    admin.UserID,
		Schedule:     in.Schedule,
		Requirements: in.Requirements,
		Gallery:      in.Gallery,
		Status:       ActivityStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := validateActivity(activity); err != nil {
		return nil, err
	}
	activity.Slug = slug.Make(activity.Title)

	if err := s.activities.Create(ctx, activity); err != nil {
		zap.L().With(spanFields(span)...).Error("failed to create activity", zap.Error(err))
		return nil, errutil.Internal("failed to create activity", err)
	}

	zap.L().With(spanFields(span)...).Info("activity created",
		zap.String("activity_id", activity.ID),
		zap.String("creator_id", activity.CreatorID),
		zap.Int64("target_amount", activity.TargetAmount),
	)
	return activity, nil
}

// UpdateActivity patches an activity. A new target on an ACTIVE activity is
// checked against the approved total and may complete it right away.
func (s *Service) UpdateActivity(ctx context.Context, id string, admin access.Actor, in UpdateActivityInput) (*Activity, error) {
	ctx, span := tracer.Start(ctx, "fundraising.UpdateActivity", trace.WithAttributes(attribute.String("activity_id", id)))
	defer span.End()
	opts := spanFields(span)

	if !s.authz.Allow(admin, access.ResourceActivity, access.ActionUpdate) {
		return nil, errForbidden
	}

	now := s.now()
	var (
		updated   *Activity
		collected int64
		completed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)

		current, err := store.LockActivity(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return errutil.NotFound("activity not found", nil)
		}

		next := *current
		changes := map[string]any{}
		if in.Title != nil {
			next.Title = strings.TrimSpace(*in.Title)
			next.Slug = slug.Make(next.Title)
			changes["title"] = next.Title
			changes["slug"] = next.Slug
		}
		if in.Description != nil {
			next.Description = strings.TrimSpace(*in.Description)
			changes["description"] = next.Description
		}
		if in.PhotoURL != nil {
			next.PhotoURL = strings.TrimSpace(*in.PhotoURL)
			changes["photo_url"] = next.PhotoURL
		}
		if in.QrisURL != nil {
			next.QrisURL = strings.TrimSpace(*in.QrisURL)
			changes["qris_url"] = next.QrisURL
		}
		if in.TargetAmount != nil {
			next.TargetAmount = *in.TargetAmount
			changes["target_amount"] = next.TargetAmount
		}
		if in.StartDate != nil {
			next.StartDate = *in.StartDate
			changes["start_date"] = next.StartDate
		}
		if in.EndDate != nil {
			next.EndDate = *in.EndDate
			changes["end_date"] = next.EndDate
		}
		if in.Schedule != nil {
			next.Schedule = *in.Schedule
			changes["schedule"] = next.Schedule
		}
		if in.Requirements != nil {
			next.Requirements = *in.Requirements
			changes["requirements"] = next.Requirements
		}
		if in.Gallery != nil {
			next.Gallery = *in.Gallery
			changes["gallery"] = next.Gallery
		}

		if err := validateActivity(&next); err != nil {
			return err
		}
		if len(changes) == 0 {
			updated = current
			return nil
		}

		next.UpdatedAt = now
		changes["updated_at"] = now
		if err := s.activities.WithTrx(tx).Update(ctx, id, changes); err != nil {
			return err
		}

		if in.TargetAmount != nil && next.Status == ActivityStatusActive {
			if collected, err = store.ApprovedSum(ctx, id); err != nil {
				return err
			}
			if completed, err = store.CompleteIfReached(ctx, id, collected, now); err != nil {
				return err
			}
			if completed {
				next.Status = ActivityStatusCompleted
			}
		}

		updated = &next
		return nil
	})
	if err != nil {
		if _, ok := err.(errutil.BaseError); ok {
			return nil, err
		}
		zap.L().With(opts...).Error("failed to update activity", zap.String("activity_id", id), zap.Error(err))
		return nil, errutil.Internal("failed to update activity", err)
	}

	zap.L().With(opts...).Info("activity updated", zap.String("activity_id", id), zap.Bool("activity_completed", completed))
	if completed {
		activitiesCompleted.Inc()
		s.notifyCompleted(ctx, updated, collected)
	}
	return updated, nil
}

// CancelActivity closes an ACTIVE activity to new donations.
func (s *Service) CancelActivity(ctx context.Context, id string, admin access.Actor) (*Activity, error) {
	ctx, span := tracer.Start(ctx, "fundraising.CancelActivity", trace.WithAttributes(attribute.String("activity_id", id)))
	defer span.End()
	opts := spanFields(span)

	if !s.authz.Allow(admin, access.ResourceActivity, access.ActionCancel) {
		return nil, errForbidden
	}

	cancelled, err := s.store.Cancel(ctx, id, s.now())
	if err != nil {
		zap.L().With(opts...).Error("failed to cancel activity", zap.String("activity_id", id), zap.Error(err))
		return nil, errutil.Internal("failed to cancel activity", err)
	}

	activity, err := s.activities.FindOne(ctx, &Activity{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to load activity", err)
	}
	if activity == nil {
		return nil, errutil.NotFound("activity not found", nil)
	}
	if !cancelled {
		return nil, errutil.InvalidState("activity is not active", nil)
	}

	zap.L().With(opts...).Info("activity cancelled", zap.String("activity_id", id))
	return activity, nil
}

// DeleteActivity removes an activity with its pending and rejected donations.
// Activities holding approved money are never deleted.
func (s *Service) DeleteActivity(ctx context.Context, id string, admin access.Actor) error {
	ctx, span := tracer.Start(ctx, "fundraising.DeleteActivity", trace.WithAttributes(attribute.String("activity_id", id)))
	defer span.End()
	opts := spanFields(span)

	if !s.authz.Allow(admin, access.ResourceActivity, access.ActionDelete) {
		return errForbidden
	}

	errFunded := errutil.Conflict("activity has approved donations and cannot be deleted", nil)

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)

		activity, err := store.LockActivity(ctx, id)
		if err != nil {
			return err
		}
		if activity == nil {
			return errutil.NotFound("activity not found", nil)
		}

		funded, err := store.HasApproved(ctx, id)
		if err != nil {
			return err
		}
		if funded {
			return errFunded
		}

		if removed, err = store.DeleteUnapprovedDonations(ctx, id); err != nil {
			return err
		}

		deleted, err := store.DeleteActivityIfUnfunded(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return errFunded
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(errutil.BaseError); ok {
			return err
		}
		zap.L().With(opts...).Error("failed to delete activity", zap.String("activity_id", id), zap.Error(err))
		return errutil.Internal("failed to delete activity", err)
	}

	zap.L().With(opts...).Info("activity deleted", zap.String("activity_id", id), zap.Int64("donations_removed", removed))
	return nil
}
