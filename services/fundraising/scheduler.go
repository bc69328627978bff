package fundraising

import (
	"context"
	"fmt"
	"time"

	"bantudesa/pkg/config"
	"bantudesa/pkg/task"
	"bantudesa/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler triggers the pending sweep every interval. With an enqueuer the
// sweep is handed to the worker queue, otherwise it runs in place.
type Scheduler struct {
	sweeper  *Sweeper
	enqueuer task.Enqueuer
	interval time.Duration
	now      func() time.Time
}

type SchedulerParams struct {
	fx.In
	Sweeper  *Sweeper
	Config   *config.Config
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewScheduler(p SchedulerParams) *Scheduler {
	return &Scheduler{
		sweeper:  p.Sweeper,
		enqueuer: p.Enqueuer,
		interval: policyFrom(p.Config).SweepInterval,
		now:      time.Now,
	}
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.Run(ctx)
			}()
			zap.L().Info("sweep scheduler started", zap.Duration("interval", s.interval))
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

// Run blocks until ctx is cancelled. A failed tick is logged and skipped.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func (s *Scheduler) Tick(ctx context.Context) {
	if s.enqueuer == nil {
		if _, err := s.sweeper.Sweep(ctx); err != nil {
			zap.L().Warn("sweep run skipped", zap.Error(err))
		}
		return
	}

	_, err := s.enqueuer.Enqueue(ctx, asynq.NewTask(taskname.DonationSweepPending, nil),
		asynq.Queue(task.QueueLow),
		asynq.MaxRetry(0),
		asynq.TaskID(s.sweepTaskID()),
	)
	if err != nil {
		zap.L().Warn("failed to enqueue sweep", zap.Error(err))
	}
}

// sweepTaskID names the sweep after the interval boundary nearest to now.
// Ticks in one window share a task; the next window always gets a new id.
func (s *Scheduler) sweepTaskID() string {
	window := s.now().UTC().Round(s.interval)
	return fmt.Sprintf("%s:%d", taskname.DonationSweepPending, window.Unix())
}
