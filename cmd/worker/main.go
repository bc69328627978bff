package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"bantudesa/pkg/config"
	"bantudesa/pkg/db"
	"bantudesa/pkg/gen"
	"bantudesa/pkg/hashistack/secretmanager"
	"bantudesa/pkg/logger"
	"bantudesa/pkg/otelcol"
	"bantudesa/pkg/profiling"
	"bantudesa/pkg/task"
	"bantudesa/services/fundraising"
	"bantudesa/services/notification"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		gen.Module,
		task.Client,
		task.Server,
		notification.Module,
		fundraising.Worker,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "production" {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger.Named("fx")}
})
