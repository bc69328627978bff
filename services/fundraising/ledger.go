package fundraising

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bantudesa/pkg/access"
	"bantudesa/pkg/config"
	"bantudesa/pkg/errutil"
	"bantudesa/pkg/proof"
	"bantudesa/pkg/repository"
	"bantudesa/pkg/sequence"
	"bantudesa/services/notification"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("bantudesa/services/fundraising")

var (
	errForbidden       = errutil.Forbidden("you are not allowed to perform this action", nil)
	errAlreadyVerified = errutil.InvalidState("donation already verified", nil)
)

// Service is the donation ledger: it records donations, runs the verification
// protocol and owns every activity status transition.
type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	now  func() time.Time

	policy config.Fundraising
	refs   sequence.Generator
	proofs proof.Verifier
	sink   notification.Sink
	authz  access.Authorizer

	store      *ActivityRepository
	activities repository.Repository[Activity]
	donations  repository.Repository[Donation]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
	Refs   sequence.Generator
	Proofs proof.Verifier
	Sink   notification.Sink
	Authz  access.Authorizer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		now:  time.Now,

		policy: policyFrom(p.Config),
		refs:   p.Refs,
		proofs: p.Proofs,
		sink:   p.Sink,
		authz:  p.Authz,

		store:      NewActivityRepository(p.DB),
		activities: repository.ProvideStore[Activity](p.DB),
		donations:  repository.ProvideStore[Donation](p.DB),
	}
}

// policyFrom fills unset policy values with the defaults.
func policyFrom(cfg *config.Config) config.Fundraising {
	d := config.DefaultFundraising()
	if cfg == nil {
		return d
	}

	p := cfg.Fundraising
	if p.MinDonation <= 0 {
		p.MinDonation = d.MinDonation
	}
	if p.RetentionWindow <= 0 {
		p.RetentionWindow = d.RetentionWindow
	}
	if p.SweepInterval <= 0 {
		p.SweepInterval = d.SweepInterval
	}
	if p.AnonymousLabel == "" {
		p.AnonymousLabel = d.AnonymousLabel
	}
	if p.ReferencePrefix == "" {
		p.ReferencePrefix = d.ReferencePrefix
	}
	if p.ReferenceAttempts <= 0 {
		p.ReferenceAttempts = d.ReferenceAttempts
	}
	return p
}

func spanFields(span trace.Span) []zap.Field {
	sc := span.SpanContext()
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

type SubmitDonationInput struct {
	Amount      int64
	ProofRef    string
	Message     string
	IsAnonymous bool
	DonorName   string
	DonorEmail  string
	DonorPhone  string
}

// SubmitDonation records a PENDING donation against an ACTIVE activity and
// tells the activity creator about it.
func (s *Service) SubmitDonation(ctx context.Context, activityID string, donor access.Actor, in SubmitDonationInput) (*Donation, error) {
	ctx, span := tracer.Start(ctx, "fundraising.SubmitDonation", trace.WithAttributes(attribute.String("activity_id", activityID)))
	defer span.End()
	opts := spanFields(span)

	if err := s.validateDonation(ctx, in); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		activity *Activity
		donation *Donation
	)
	// the row lock keeps a concurrent DeleteActivity from removing the
	// activity between the state check and the insert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if activity, err = s.store.WithTrx(tx).LockActivity(ctx, activityID); err != nil {
			return err
		}
		if activity == nil {
			return errutil.NotFound("activity not found", nil)
		}

		switch activity.Status {
		case ActivityStatusActive:
			if !activity.AcceptsDonations(now) {
				return errutil.InvalidState("activity has ended", nil)
			}
		case ActivityStatusCompleted, ActivityStatusCancelled:
			return errutil.InvalidState("activity is not accepting donations", nil)
		default:
			return errutil.InvalidState("activity is not accepting donations", nil)
		}

		donations := s.donations.WithTrx(tx)
		reference, err := s.nextReference(ctx, donations)
		if err != nil {
			return fmt.Errorf("generate donation reference: %w", err)
		}

		donation = &Donation{
			ID:          s.node.Generate().String(),
			Reference:   reference,
			ActivityID:  activity.ID,
			Amount:      in.Amount,
			ProofRef:    strings.TrimSpace(in.ProofRef),
			Message:     strings.TrimSpace(in.Message),
			IsAnonymous: in.IsAnonymous,
			Status:      DonationStatusPending,
			DonorEmail:  firstNonEmpty(in.DonorEmail, donor.Email),
			DonorPhone:  firstNonEmpty(in.DonorPhone, donor.Phone),
			CreatedAt:   now,
		}
		if donor.Authenticated() {
			id := donor.UserID
			donation.DonorID = &id
		}
		if !in.IsAnonymous {
			donation.DonorName = firstNonEmpty(in.DonorName, donor.Name)
		}

		return donations.Create(ctx, donation)
	})
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) {
			return nil, err
		}
		zap.L().With(opts...).Error("failed to submit donation", zap.String("activity_id", activityID), zap.Error(err))
		return nil, errutil.Internal("failed to submit donation", err)
	}

	donationsSubmitted.Inc()
	zap.L().With(opts...).Info("donation submitted",
		zap.String("donation_id", donation.ID),
		zap.String("reference", donation.Reference),
		zap.String("activity_id", activity.ID),
		zap.Int64("amount", donation.Amount),
	)

	s.notify(ctx, notification.Message{
		UserID:   activity.CreatorID,
		Title:    "Donasi Baru Masuk",
		Body:     fmt.Sprintf("Donasi baru sebesar %s untuk kegiatan %q menunggu verifikasi.", formatRupiah(donation.Amount), activity.Title),
		Category: notification.CategoryDonation,
	})

	return donation, nil
}

func (s *Service) validateDonation(ctx context.Context, in SubmitDonationInput) error {
	var details []errutil.Detail

	switch {
	case in.Amount <= 0:
		details = append(details, errutil.Detail{Field: "amount", Message: "amount is required"})
	case in.Amount < s.policy.MinDonation:
		details = append(details, errutil.Detail{Field: "amount", Message: fmt.Sprintf("minimum donation is %s", formatRupiah(s.policy.MinDonation))})
	}

	if err := s.proofs.Verify(ctx, in.ProofRef); err != nil {
		switch {
		case errors.Is(err, proof.ErrMissing), errors.Is(err, proof.ErrNotFound):
			details = append(details, errutil.Detail{Field: "proof_ref", Message: err.Error()})
		default:
			return errutil.Internal("failed to check proof of transfer", err)
		}
	}

	if len(details) > 0 {
		return errutil.ValidationFailed("invalid donation", nil, errutil.WithDetails(details...))
	}
	return nil
}

// nextReference draws references until one is not yet used by any donation.
func (s *Service) nextReference(ctx context.Context, donations repository.Repository[Donation]) (string, error) {
	for attempt := 0; attempt < s.policy.ReferenceAttempts; attempt++ {
		ref, err := s.refs.NextDonationReference(ctx)
		if err != nil {
			return "", err
		}

		taken, err := donations.Count(ctx, &Donation{Reference: ref})
		if err != nil {
			return "", err
		}
		if taken == 0 {
			return ref, nil
		}
		zap.L().Warn("donation reference collision, retrying", zap.String("reference", ref), zap.Int("attempt", attempt+1))
	}
	return "", fmt.Errorf("no free donation reference after %d attempts", s.policy.ReferenceAttempts)
}

// VerifyDonation applies an administrator's decision to a PENDING donation.
// The status write only lands while the row is still PENDING, so concurrent
// calls on the same donation produce exactly one winner; the rest get
// INVALID_STATE. Store failures come back as INTERNAL and are safe to retry.
func (s *Service) VerifyDonation(ctx context.Context, donationID string, admin access.Actor, decision Decision, note string) (*Donation, error) {
	ctx, span := tracer.Start(ctx, "fundraising.VerifyDonation", trace.WithAttributes(
		attribute.String("donation_id", donationID),
		attribute.String("decision", string(decision)),
	))
	defer span.End()
	opts := spanFields(span)

	if !s.authz.Allow(admin, access.ResourceDonation, access.ActionVerify) {
		return nil, errForbidden
	}

	outcome, ok := decision.Outcome()
	if !ok {
		return nil, errutil.ValidationFailed("action must be approve or reject", nil)
	}

	donation, err := s.donations.FindOne(ctx, &Donation{ID: donationID})
	if err != nil {
		zap.L().With(opts...).Error("failed to load donation", zap.String("donation_id", donationID), zap.Error(err))
		return nil, errutil.Internal("failed to load donation", err)
	}
	if donation == nil {
		return nil, errutil.NotFound("donation not found", nil)
	}
	if donation.Status.Terminal() {
		return nil, errAlreadyVerified
	}

	note = strings.TrimSpace(note)
	now := s.now()

	var (
		activity  *Activity
		collected int64
		completed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)

		// 🔒 approvals on one activity queue behind this lock so the sum
		// below always includes every approval committed before it
		if outcome == DonationStatusApproved {
			var err error
			if activity, err = store.LockActivity(ctx, donation.ActivityID); err != nil {
				return err
			}
		}

		moved, err := store.VerifyDonation(ctx, donation.ID, outcome, admin.UserID, now, note)
		if err != nil {
			return err
		}
		if !moved {
			return errAlreadyVerified
		}

		switch outcome {
		case DonationStatusApproved:
			if activity == nil {
				return nil
			}
			if collected, err = store.ApprovedSum(ctx, donation.ActivityID); err != nil {
				return err
			}
			completed, err = store.CompleteIfReached(ctx, donation.ActivityID, collected, now)
			return err
		case DonationStatusRejected:
			return nil
		default:
			return fmt.Errorf("unexpected outcome %q", outcome)
		}
	})
	if err != nil {
		if errutil.IsStatus(err, errutil.StatusInvalidState) {
			verifyConflicts.Inc()
			zap.L().With(opts...).Info("donation verified concurrently", zap.String("donation_id", donationID))
			return nil, err
		}
		zap.L().With(opts...).Error("failed to verify donation", zap.String("donation_id", donationID), zap.Error(err))
		return nil, errutil.Internal("failed to verify donation", err)
	}

	verifier := admin.UserID
	donation.Status = outcome
	donation.VerifiedBy = &verifier
	donation.VerifiedAt = &now
	donation.AdminNote = note

	donationsVerified.WithLabelValues(string(outcome)).Inc()
	zap.L().With(opts...).Info("donation verified",
		zap.String("donation_id", donation.ID),
		zap.String("status", string(outcome)),
		zap.String("verified_by", verifier),
		zap.Int64("collected", collected),
		zap.Bool("activity_completed", completed),
	)

	if activity == nil {
		if activity, err = s.activities.FindOne(ctx, &Activity{ID: donation.ActivityID}); err != nil {
			zap.L().With(opts...).Warn("failed to load activity for donor notification",
				zap.String("activity_id", donation.ActivityID),
				zap.Error(err),
			)
		}
	}
	s.notifyDonor(ctx, donation, activity)

	if completed && activity != nil {
		activitiesCompleted.Inc()
		s.notifyCompleted(ctx, activity, collected)
	}

	return donation, nil
}

func (s *Service) notifyDonor(ctx context.Context, d *Donation, activity *Activity) {
	if d.DonorID == nil {
		return
	}

	title := ""
	if activity != nil {
		title = activity.Title
	}

	msg := notification.Message{UserID: *d.DonorID, Category: notification.CategoryDonation}
	switch d.Status {
	case DonationStatusApproved:
		msg.Title = "Donasi Diverifikasi"
		msg.Body = fmt.Sprintf("Donasi Anda sebesar %s untuk kegiatan %q telah diverifikasi. Terima kasih!", formatRupiah(d.Amount), title)
	case DonationStatusRejected:
		msg.Title = "Donasi Ditolak"
		msg.Body = fmt.Sprintf("Donasi Anda sebesar %s untuk kegiatan %q ditolak.", formatRupiah(d.Amount), title)
		if d.AdminNote != "" {
			msg.Body += " Alasan: " + d.AdminNote
		}
	case DonationStatusPending:
		return
	default:
		return
	}
	s.notify(ctx, msg)
}

func (s *Service) notifyCompleted(ctx context.Context, activity *Activity, collected int64) {
	s.notify(ctx, notification.Message{
		UserID:   activity.CreatorID,
		Title:    "Target Donasi Tercapai",
		Body:     fmt.Sprintf("Kegiatan %q telah mencapai target %s dengan total donasi %s.", activity.Title, formatRupiah(activity.TargetAmount), formatRupiah(collected)),
		Category: notification.CategoryActivity,
	})
}

// notify is best effort. Failures are counted and logged, never returned.
func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.sink == nil || msg.UserID == "" {
		return
	}
	if err := s.sink.Notify(ctx, msg); err != nil {
		notificationFailures.Inc()
		zap.L().With(spanFields(trace.SpanFromContext(ctx))...).Warn("failed to send notification",
			zap.String("user_id", msg.UserID),
			zap.String("title", msg.Title),
			zap.Error(err),
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// formatRupiah renders 1500000 as "Rp 1.500.000".
func formatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "Rp " + sign + b.String()
}
