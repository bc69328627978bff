package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"bantudesa/pkg/task"
	"bantudesa/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsyncSink hands messages to the worker through asynq instead of writing them
// on the request path.
type AsyncSink struct {
	enqueuer task.Enqueuer
}

func NewAsyncSink(enqueuer task.Enqueuer) *AsyncSink {
	return &AsyncSink{enqueuer: enqueuer}
}

func (s *AsyncSink) Notify(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = s.enqueuer.Enqueue(ctx, asynq.NewTask(taskname.NotificationDeliver, payload),
		asynq.Queue(task.QueueLow),
		asynq.MaxRetry(5),
	)
	return err
}

// HandleDeliverTask stores a queued message. Malformed payloads are dropped.
func (s *Service) HandleDeliverTask(ctx context.Context, t *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		zap.L().Error("invalid notification payload", zap.Error(err))
		return fmt.Errorf("decode notification payload: %v: %w", err, asynq.SkipRetry)
	}

	if msg.UserID == "" {
		return fmt.Errorf("notification without recipient: %w", asynq.SkipRetry)
	}

	return s.Notify(ctx, msg)
}
