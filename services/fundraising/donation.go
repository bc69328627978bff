package fundraising

import (
	"context"
	"errors"
	"strings"
	"time"

	"bantudesa/pkg/access"
	"bantudesa/pkg/db/option"
	"bantudesa/pkg/db/pagination"
	"bantudesa/pkg/errutil"

	"go.uber.org/zap"
)

// DonationView is a donation together with the title of its activity.
type DonationView struct {
	*Donation
	ActivityTitle string `json:"activity_title"`
}

// DonationReceipt is what anyone holding a reference may see. It carries no
// donor contact details.
type DonationReceipt struct {
	Reference     string         `json:"reference"`
	ActivityID    string         `json:"activity_id"`
	ActivityTitle string         `json:"activity_title"`
	Amount        int64          `json:"amount"`
	Status        DonationStatus `json:"status"`
	AdminNote     string         `json:"admin_note,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	VerifiedAt    *time.Time     `json:"verified_at,omitempty"`
}

func donationCursor(d *Donation) pagination.Cursor {
	return pagination.NewCursor(d.CreatedAt, d.ID)
}

// ListPending is the admin verification queue, newest first.
func (s *Service) ListPending(ctx context.Context, admin access.Actor, page pagination.Pagination) ([]*DonationView, *pagination.PageInfo, error) {
	if !s.authz.Allow(admin, access.ResourceDonation, access.ActionListPending) {
		return nil, nil, errForbidden
	}
	return s.listDonations(ctx, &Donation{Status: DonationStatusPending}, page)
}

// DonationHistory lists every donation the caller submitted while signed in.
func (s *Service) DonationHistory(ctx context.Context, donor access.Actor, page pagination.Pagination) ([]*DonationView, *pagination.PageInfo, error) {
	if !donor.Authenticated() {
		return nil, nil, errutil.Unauthorized("authentication required", nil)
	}
	id := donor.UserID
	return s.listDonations(ctx, &Donation{DonorID: &id}, page)
}

func (s *Service) listDonations(ctx context.Context, query *Donation, page pagination.Pagination) ([]*DonationView, *pagination.PageInfo, error) {
	page = page.Normalize()
	rows, err := s.donations.Find(ctx, query,
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	)
	if err != nil {
		if errors.Is(err, option.ErrInvalidCursor) {
			return nil, nil, errutil.ValidationFailed("invalid cursor", err)
		}
		zap.L().Error("failed to list donations", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list donations", err)
	}

	rows, info := pagination.BuildCursorPageInfo(rows, page.Limit, donationCursor)
	views, err := s.withActivityTitles(ctx, rows)
	if err != nil {
		return nil, nil, err
	}
	return views, info, nil
}

func (s *Service) withActivityTitles(ctx context.Context, rows []*Donation) ([]*DonationView, error) {
	views := make([]*DonationView, 0, len(rows))
	if len(rows) == 0 {
		return views, nil
	}

	seen := make(map[string]bool, len(rows))
	ids := make([]string, 0, len(rows))
	for _, d := range rows {
		if !seen[d.ActivityID] {
			seen[d.ActivityID] = true
			ids = append(ids, d.ActivityID)
		}
	}

	activities, err := s.activities.Find(ctx, &Activity{},
		option.ApplyOperator(option.Condition{Field: "id", Operator: option.IN, Value: ids}),
	)
	if err != nil {
		zap.L().Error("failed to load activity titles", zap.Error(err))
		return nil, errutil.Internal("failed to load activities", err)
	}

	titles := make(map[string]string, len(activities))
	for _, a := range activities {
		titles[a.ID] = a.Title
	}

	for _, d := range rows {
		views = append(views, &DonationView{Donation: d, ActivityTitle: titles[d.ActivityID]})
	}
	return views, nil
}

// TrackDonation looks a donation up by its public reference.
func (s *Service) TrackDonation(ctx context.Context, reference string) (*DonationReceipt, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, errutil.ValidationFailed("reference is required", nil)
	}

	donation, err := s.donations.FindOne(ctx, &Donation{Reference: reference})
	if err != nil {
		zap.L().Error("failed to load donation", zap.String("reference", reference), zap.Error(err))
		return nil, errutil.Internal("failed to load donation", err)
	}
	if donation == nil {
		return nil, errutil.NotFound("donation not found", nil)
	}

	receipt := &DonationReceipt{
		Reference:  donation.Reference,
		ActivityID: donation.ActivityID,
		Amount:     donation.Amount,
		Status:     donation.Status,
		AdminNote:  donation.AdminNote,
		CreatedAt:  donation.CreatedAt,
		VerifiedAt: donation.VerifiedAt,
	}
	if activity, err := s.activities.FindOne(ctx, &Activity{ID: donation.ActivityID}); err == nil && activity != nil {
		receipt.ActivityTitle = activity.Title
	}
	return receipt, nil
}
