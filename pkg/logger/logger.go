package logger

import (
	"errors"

	"bantudesa/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("zap",
	fx.Provide(
		New,
	),
)

type ConfigParams struct {
	fx.In
	Cfg *config.Config
}

// New builds the process logger and installs it as the zap global, which is
// what the services log through.
func New(p ConfigParams) (*zap.Logger, error) {
	if p.Cfg == nil {
		return nil, errors.New("logger: missing config")
	}

	log, err := build(p.Cfg.AppEnv)
	if err != nil {
		return nil, err
	}

	log = log.With(
		zap.String("env", p.Cfg.AppEnv),
		zap.String("service_name", p.Cfg.AppName),
		zap.String("version", p.Cfg.AppVersion),
		zap.Int64("node_id", p.Cfg.NodeID),
	)
	zap.ReplaceGlobals(log)

	return log, nil
}

func build(env string) (*zap.Logger, error) {
	if env != "production" {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.Encoding = "json"
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
