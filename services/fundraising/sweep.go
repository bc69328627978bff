package fundraising

import (
	"context"
	"fmt"
	"time"

	"bantudesa/pkg/config"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper deletes PENDING donations that nobody verified within the
// retention window. Approved and rejected donations are never touched.
type Sweeper struct {
	store     *ActivityRepository
	retention time.Duration
	now       func() time.Time

	deleted metric.Int64Counter
}

type SweeperParams struct {
	fx.In
	DB     *gorm.DB
	Config *config.Config
	Meter  metric.MeterProvider `optional:"true"`
}

func NewSweeper(p SweeperParams) (*Sweeper, error) {
	provider := p.Meter
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	deleted, err := provider.Meter("bantudesa/services/fundraising").Int64Counter(
		"fundraising.sweep.deleted",
		metric.WithDescription("Pending donations removed by the retention sweep"),
		metric.WithUnit("{donation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sweep counter: %w", err)
	}

	return &Sweeper{
		store:     NewActivityRepository(p.DB),
		retention: policyFrom(p.Config).RetentionWindow,
		now:       time.Now,
		deleted:   deleted,
	}, nil
}

// Sweep removes PENDING donations created at or before now minus the
// retention window and returns how many went.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "fundraising.Sweep")
	defer span.End()

	cutoff := s.now().Add(-s.retention)
	n, err := s.store.SweepPending(ctx, cutoff)
	if err != nil {
		zap.L().With(spanFields(span)...).Error("failed to sweep pending donations", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}

	s.deleted.Add(ctx, n)
	zap.L().With(spanFields(span)...).Info("pending donations swept", zap.Time("cutoff", cutoff), zap.Int64("deleted", n))
	return n, nil
}

// HandleSweepTask runs one sweep for the asynq worker. A failed run is not
// retried; the next scheduled run picks up whatever is left.
func (s *Sweeper) HandleSweepTask(ctx context.Context, _ *asynq.Task) error {
	if _, err := s.Sweep(ctx); err != nil {
		return fmt.Errorf("sweep pending donations: %v: %w", err, asynq.SkipRetry)
	}
	return nil
}
