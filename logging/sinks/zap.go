package sinks

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swarm/server/logging"
)

// Zap forwards events into a structured zap logger.
type Zap struct {
	logger *zap.Logger
}

// NewZap builds a zap logger at the given level. Production encoding emits
// JSON; development encoding emits colored console lines.
func NewZap(level string, production bool) (*Zap, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cfg.DisableCaller = true
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Zap{logger: logger}, nil
}

// WrapZap adapts an existing logger, typically zaptest or zap.NewNop.
func WrapZap(logger *zap.Logger) *Zap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Zap{logger: logger}
}

func (s *Zap) Write(event logging.Event) error {
	fields := make([]zap.Field, 0, 6+len(event.Extra))
	fields = append(fields,
		zap.Uint64("tick", event.Tick),
		zap.Time("time", event.Time),
		zap.String("category", event.Category),
		zap.String("actor", entity(event.Actor)),
	)
	if len(event.Targets) > 0 {
		targets := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			targets = append(targets, entity(target))
		}
		fields = append(fields, zap.Strings("targets", targets))
	}
	if event.CommandID != "" {
		fields = append(fields, zap.String("command", event.CommandID))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	for k, v := range event.Extra {
		fields = append(fields, zap.Any(k, v))
	}
	msg := string(event.Type)
	switch event.Severity {
	case logging.SeverityDebug:
		s.logger.Debug(msg, fields...)
	case logging.SeverityWarn:
		s.logger.Warn(msg, fields...)
	case logging.SeverityError:
		s.logger.Error(msg, fields...)
	default:
		s.logger.Info(msg, fields...)
	}
	return nil
}

func (s *Zap) Close(context.Context) error {
	// Sync on stdout/stderr returns EINVAL on some platforms.
	_ = s.logger.Sync()
	return nil
}
