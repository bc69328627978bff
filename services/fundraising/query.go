package fundraising

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"bantudesa/pkg/config"
	"bantudesa/pkg/db/option"
	"bantudesa/pkg/db/pagination"
	"bantudesa/pkg/errutil"
	"bantudesa/pkg/repository"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const statusAll = "ALL"

// ActivityFilter narrows the public activity listing. An empty status means
// ACTIVE; "ALL" disables the status filter.
type ActivityFilter struct {
	Status string `form:"status"`
	Search string `form:"search"`
	pagination.Pagination
}

type ActivitySummary struct {
	*Activity
	Collected          int64 `json:"collected"`
	DonorCount         int64 `json:"donor_count"`
	ProgressPercentage int   `json:"progress_percentage"`
	DaysLeft           int   `json:"days_left"`
}

type Donor struct {
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	DonatedAt time.Time `json:"donated_at"`
}

type ActivityDetail struct {
	ActivitySummary
	Donors []Donor `json:"donors"`
}

// CampaignQuery serves the read side. Every figure it reports counts
// APPROVED donations only.
type CampaignQuery struct {
	now    func() time.Time
	policy config.Fundraising

	store      *ActivityRepository
	activities repository.Repository[Activity]
	donations  repository.Repository[Donation]
}

type CampaignQueryParams struct {
	fx.In
	DB     *gorm.DB
	Config *config.Config
}

func NewCampaignQuery(p CampaignQueryParams) *CampaignQuery {
	return &CampaignQuery{
		now:    time.Now,
		policy: policyFrom(p.Config),

		store:      NewActivityRepository(p.DB),
		activities: repository.ProvideStore[Activity](p.DB),
		donations:  repository.ProvideStore[Donation](p.DB),
	}
}

func (q *CampaignQuery) ListActivities(ctx context.Context, filter ActivityFilter) ([]*ActivitySummary, *pagination.PageInfo, error) {
	ctx, span := tracer.Start(ctx, "fundraising.ListActivities")
	defer span.End()

	query := &Activity{}
	switch status := strings.ToUpper(strings.TrimSpace(filter.Status)); status {
	case "":
		query.Status = ActivityStatusActive
	case statusAll:
	default:
		if !ActivityStatus(status).Valid() {
			return nil, nil, errutil.ValidationFailed("invalid status filter", nil, errutil.WithDetails(errutil.Detail{
				Field:   "status",
				Message: "status must be one of ACTIVE, COMPLETED, CANCELLED, ALL",
			}))
		}
		query.Status = ActivityStatus(status)
	}

	page := filter.Pagination.Normalize()
	rows, err := q.activities.Find(ctx, query,
		option.WithSearch(filter.Search, "title", "description"),
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	)
	if err != nil {
		if errors.Is(err, option.ErrInvalidCursor) {
			return nil, nil, errutil.ValidationFailed("invalid cursor", err)
		}
		zap.L().With(spanFields(span)...).Error("failed to list activities", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list activities", err)
	}

	rows, info := pagination.BuildCursorPageInfo(rows, page.Limit, func(a *Activity) pagination.Cursor {
		return pagination.NewCursor(a.CreatedAt, a.ID)
	})

	ids := make([]string, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.ID)
	}
	aggs, err := q.store.Aggregates(ctx, ids...)
	if err != nil {
		zap.L().With(spanFields(span)...).Error("failed to aggregate donations", zap.Error(err))
		return nil, nil, errutil.Internal("failed to aggregate donations", err)
	}

	now := q.now()
	out := make([]*ActivitySummary, 0, len(rows))
	for _, a := range rows {
		summary := summarize(a, aggs[a.ID], now)
		out = append(out, &summary)
	}
	return out, info, nil
}

// GetActivityDetail returns the activity with its approved totals and the
// approved donor list, newest first.
func (q *CampaignQuery) GetActivityDetail(ctx context.Context, id string) (*ActivityDetail, error) {
	ctx, span := tracer.Start(ctx, "fundraising.GetActivityDetail")
	defer span.End()

	activity, err := q.activities.FindOne(ctx, &Activity{ID: id})
	if err != nil {
		zap.L().With(spanFields(span)...).Error("failed to load activity", zap.String("activity_id", id), zap.Error(err))
		return nil, errutil.Internal("failed to load activity", err)
	}
	if activity == nil {
		return nil, errutil.NotFound("activity not found", nil)
	}

	var (
		aggs     map[string]Aggregate
		approved []*Donation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		aggs, err = q.store.Aggregates(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		approved, err = q.donations.Find(gctx, &Donation{ActivityID: id, Status: DonationStatusApproved},
			option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		)
		return err
	})
	if err := g.Wait(); err != nil {
		zap.L().With(spanFields(span)...).Error("failed to load activity donations", zap.String("activity_id", id), zap.Error(err))
		return nil, errutil.Internal("failed to load activity donations", err)
	}

	detail := &ActivityDetail{
		ActivitySummary: summarize(activity, aggs[id], q.now()),
		Donors:          make([]Donor, 0, len(approved)),
	}
	for _, d := range approved {
		detail.Donors = append(detail.Donors, Donor{
			Name:      q.displayName(d),
			Amount:    d.Amount,
			DonatedAt: d.CreatedAt,
		})
	}
	return detail, nil
}

func (q *CampaignQuery) displayName(d *Donation) string {
	if d.IsAnonymous || strings.TrimSpace(d.DonorName) == "" {
		return q.policy.AnonymousLabel
	}
	return d.DonorName
}

func summarize(a *Activity, agg Aggregate, now time.Time) ActivitySummary {
	return ActivitySummary{
		Activity:           a,
		Collected:          agg.Collected,
		DonorCount:         agg.DonorCount,
		ProgressPercentage: progress(agg.Collected, a.TargetAmount),
		DaysLeft:           daysLeft(a.EndDate, now),
	}
}

// progress is collected/target as a whole percentage, capped at 100.
func progress(collected, target int64) int {
	if target <= 0 || collected <= 0 {
		return 0
	}
	pct := int(math.Round(float64(collected) * 100 / float64(target)))
	if pct > 100 {
		return 100
	}
	return pct
}

// daysLeft rounds the remaining time up to whole days and never goes negative.
func daysLeft(end, now time.Time) int {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}
