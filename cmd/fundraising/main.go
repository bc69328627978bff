package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"bantudesa/pkg/access"
	"bantudesa/pkg/config"
	"bantudesa/pkg/db"
	"bantudesa/pkg/gen"
	"bantudesa/pkg/hashistack/secretmanager"
	"bantudesa/pkg/health"
	"bantudesa/pkg/logger"
	"bantudesa/pkg/middleware"
	"bantudesa/pkg/minio"
	"bantudesa/pkg/otelcol"
	"bantudesa/pkg/profiling"
	"bantudesa/pkg/proof"
	"bantudesa/pkg/redis"
	"bantudesa/pkg/sequence"
	"bantudesa/pkg/server"
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
		redis.Module,
		minio.Client,
		gen.Module,
		sequence.Module,
		proof.Module,
		access.Module,
		task.Client,
		health.Module,
		notification.Module,
		fundraising.Module,
		server.ProvideHTTPServer,
		fx.Invoke(registerRoutes),
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

func registerRoutes(api *gin.RouterGroup, tokens *access.Tokens, campaigns *fundraising.Handler, inbox *notification.Handler) {
	campaigns.RegisterRoutes(api)
	inbox.RegisterRoutes(api.Group("", middleware.Authenticate(tokens, true)))
}
