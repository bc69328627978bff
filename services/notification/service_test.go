package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bantudesa/pkg/db/pagination"
	"bantudesa/pkg/errutil"
	"bantudesa/pkg/taskname"
	"bantudesa/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &Notification{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(ServiceParams{DB: db, Node: node})
}

func TestNotifyAndList(t *testing.T) {
	svc := newTestService(t)
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i, title := range []string{"Donasi Baru Masuk", "Donasi Diverifikasi", "Target Tercapai"} {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, svc.Notify(ctx, Message{UserID: "u-1", Title: title, Category: CategoryDonation}))
	}
	require.NoError(t, svc.Notify(ctx, Message{UserID: "u-2", Title: "other"}))

	items, info, err := svc.List(ctx, "u-1", pagination.Pagination{Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.True(t, info.HasMore)
	require.Equal(t, "Target Tercapai", items[0].Title)
	require.Equal(t, "Donasi Diverifikasi", items[1].Title)

	items, info, err = svc.List(ctx, "u-1", pagination.Pagination{Limit: 2, Cursor: info.NextCursor})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.False(t, info.HasMore)
	require.Equal(t, "Donasi Baru Masuk", items[0].Title)
}

func TestNotifyRequiresRecipient(t *testing.T) {
	svc := newTestService(t)
	err := svc.Notify(context.Background(), Message{Title: "x"})
	require.True(t, errutil.IsStatus(err, errutil.StatusValidationFailed))
}

func TestMarkRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Notify(ctx, Message{UserID: "u-1", Title: "x"}))

	items, _, err := svc.List(ctx, "u-1", pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	err = svc.MarkRead(ctx, "u-2", items[0].ID)
	require.True(t, errutil.IsStatus(err, errutil.StatusNotFound))

	require.NoError(t, svc.MarkRead(ctx, "u-1", items[0].ID))
	items, _, err = svc.List(ctx, "u-1", pagination.Pagination{})
	require.NoError(t, err)
	require.True(t, items[0].IsRead)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "1", Type: task.Type()}, nil
}

func TestAsyncSinkRoundTrip(t *testing.T) {
	svc := newTestService(t)
	enq := &fakeEnqueuer{}
	sink := NewAsyncSink(enq)
	ctx := context.Background()

	msg := Message{UserID: "u-9", Title: "Donasi Ditolak", Body: "alasan: bukti buram", Category: CategoryDonation}
	require.NoError(t, sink.Notify(ctx, msg))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, taskname.NotificationDeliver, enq.tasks[0].Type())

	require.NoError(t, svc.HandleDeliverTask(ctx, enq.tasks[0]))

	items, _, err := svc.List(ctx, "u-9", pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "alasan: bukti buram", items[0].Message)
}

func TestHandleDeliverTaskSkipsBadPayload(t *testing.T) {
	svc := newTestService(t)

	err := svc.HandleDeliverTask(context.Background(), asynq.NewTask(taskname.NotificationDeliver, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	payload, _ := json.Marshal(Message{Title: "nobody"})
	err = svc.HandleDeliverTask(context.Background(), asynq.NewTask(taskname.NotificationDeliver, payload))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAsyncSinkPropagatesEnqueueError(t *testing.T) {
	sink := NewAsyncSink(&fakeEnqueuer{err: errors.New("redis down")})
	require.Error(t, sink.Notify(context.Background(), Message{UserID: "u"}))
}
