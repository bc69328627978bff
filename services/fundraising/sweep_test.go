package fundraising

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"gorm.io/gorm"

	"bantudesa/pkg/config"
	"bantudesa/pkg/task"
	"bantudesa/pkg/taskname"
	"bantudesa/services/testutil"
)

func newTestSweeper(t *testing.T, at time.Time) (*Sweeper, *gorm.DB, *sdkmetric.ManualReader) {
	t.Helper()
	db := testutil.NewTestDB(t, &Activity{}, &Donation{})
	reader := sdkmetric.NewManualReader()

	s, err := NewSweeper(SweeperParams{
		DB:     db,
		Config: &config.Config{Fundraising: config.DefaultFundraising()},
		Meter:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	})
	require.NoError(t, err)
	s.now = func() time.Time { return at }
	return s, db, reader
}

func sweptTotal(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "fundraising.sweep.deleted" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestSweepRemovesStalePendingOnly(t *testing.T) {
	s, db, reader := newTestSweeper(t, testNow.Add(25*time.Hour))
	seedActivity(t, db, "act-1", 1_000_000)
	seedDonation(t, db, "stale", "act-1", 20_000, DonationStatusPending)
	seedDonation(t, db, "kept", "act-1", 20_000, DonationStatusApproved)
	seedDonation(t, db, "no", "act-1", 20_000, DonationStatusRejected)
	seedDonation(t, db, "fresh", "act-1", 20_000, DonationStatusPending, func(d *Donation) {
		d.CreatedAt = testNow.Add(2 * time.Hour)
	})

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	var ids []string
	require.NoError(t, db.Model(&Donation{}).Order("id").Pluck("id", &ids).Error)
	require.Equal(t, []string{"fresh", "kept", "no"}, ids)
	require.Equal(t, int64(1), sweptTotal(t, reader))
}

func TestSweepBoundaryIsInclusive(t *testing.T) {
	s, db, _ := newTestSweeper(t, testNow.Add(24*time.Hour))
	seedActivity(t, db, "act-1", 1_000_000)
	seedDonation(t, db, "edge", "act-1", 20_000, DonationStatusPending)
	seedDonation(t, db, "young", "act-1", 20_000, DonationStatusPending, func(d *Donation) {
		d.CreatedAt = testNow.Add(time.Second)
	})

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, int64(1), countRows(t, db, &Donation{}))
}

func TestHandleSweepTaskSkipsRetryOnFailure(t *testing.T) {
	s, db, _ := newTestSweeper(t, testNow)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = s.HandleSweepTask(context.Background(), asynq.NewTask(taskname.DonationSweepPending, nil))
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func TestSchedulerTickEnqueuesSweep(t *testing.T) {
	s, _, _ := newTestSweeper(t, testNow)
	enq := &fakeEnqueuer{}
	sched := &Scheduler{sweeper: s, enqueuer: enq, interval: time.Hour, now: func() time.Time { return testNow }}

	sched.Tick(context.Background())
	require.Equal(t, 1, enq.count())
	require.Equal(t, taskname.DonationSweepPending, enq.tasks[0].Type())

	enq.err = errors.New("redis down")
	require.NotPanics(t, func() { sched.Tick(context.Background()) })
}

func TestSchedulerTickRunsInline(t *testing.T) {
	s, db, _ := newTestSweeper(t, testNow.Add(48*time.Hour))
	seedActivity(t, db, "act-1", 1_000_000)
	seedDonation(t, db, "stale", "act-1", 20_000, DonationStatusPending)

	sched := &Scheduler{sweeper: s, interval: time.Hour, now: func() time.Time { return testNow }}
	sched.Tick(context.Background())
	require.Equal(t, int64(0), countRows(t, db, &Donation{}))
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	s, _, _ := newTestSweeper(t, testNow)
	enq := &fakeEnqueuer{}
	sched := &Scheduler{sweeper: s, enqueuer: enq, interval: 10 * time.Millisecond, now: time.Now}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()

	require.Eventually(t, func() bool { return enq.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerRequeuesAfterArchivedSweep(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := asynq.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	inspector := asynq.NewInspector(opt)
	t.Cleanup(func() { _ = inspector.Close() })

	s, _, _ := newTestSweeper(t, testNow)
	at := testNow
	sched := &Scheduler{sweeper: s, enqueuer: task.NewEnqueuer(client), interval: time.Hour, now: func() time.Time { return at }}

	pending := func() []string {
		ids, err := mr.List("asynq:{" + task.QueueLow + "}:pending")
		if errors.Is(err, miniredis.ErrKeyNotFound) {
			return nil
		}
		require.NoError(t, err)
		return ids
	}

	ctx := context.Background()
	sched.Tick(ctx)
	sched.Tick(ctx)
	first := pending()
	require.Len(t, first, 1)

	// the worker failed this run and asynq archived it without retrying
	require.NoError(t, inspector.ArchiveTask(task.QueueLow, first[0]))
	require.Empty(t, pending())

	at = at.Add(time.Hour)
	sched.Tick(ctx)
	next := pending()
	require.Len(t, next, 1)
	require.NotEqual(t, first[0], next[0])
}
