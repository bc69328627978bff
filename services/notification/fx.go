package notification

import (
	"bantudesa/pkg/task"

	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(
		NewService,
		NewHandler,
		provideSink,
	),
)

type sinkParams struct {
	fx.In

	Service  *Service
	Enqueuer task.Enqueuer `optional:"true"`
}

// provideSink prefers queued delivery when an asynq client is wired in.
func provideSink(p sinkParams) Sink {
	if p.Enqueuer != nil {
		return NewAsyncSink(p.Enqueuer)
	}
	return p.Service
}
