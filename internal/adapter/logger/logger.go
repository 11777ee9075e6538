package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(action, message, requestID string, details map[string]interface{})
	Debug(action, message, requestID string, details map[string]interface{})
	Warn(action, message, requestID string, details map[string]interface{})
	Error(action, message, requestID string, details map[string]interface{}, err error)
	Sync()
}

type zapLogger struct {
	log *zap.Logger
}

// New builds a logger for service. mode "prod"/"production" emits JSON,
// anything else the development console encoder.
func New(service, mode string) (Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	return &zapLogger{
		log: base.With(zap.String("service", service), zap.String("hostname", hostname)),
	}, nil
}

// NewNop discards everything; used by tests.
func NewNop() Logger {
	return &zapLogger{log: zap.NewNop()}
}

func (l *zapLogger) Info(action, message, requestID string, details map[string]interface{}) {
	l.log.Info(message, fields(action, requestID, details, nil)...)
}

func (l *zapLogger) Debug(action, message, requestID string, details map[string]interface{}) {
	l.log.Debug(message, fields(action, requestID, details, nil)...)
}

func (l *zapLogger) Warn(action, message, requestID string, details map[string]interface{}) {
	l.log.Warn(message, fields(action, requestID, details, nil)...)
}

func (l *zapLogger) Error(action, message, requestID string, details map[string]interface{}, err error) {
	l.log.Error(message, fields(action, requestID, details, err)...)
}

func (l *zapLogger) Sync() {
	_ = l.log.Sync()
}

func fields(action, requestID string, details map[string]interface{}, err error) []zap.Field {
	out := make([]zap.Field, 0, 4)
	out = append(out, zap.String("action", action))
	if requestID != "" {
		out = append(out, zap.String("request_id", requestID))
	}
	if len(details) > 0 {
		out = append(out, zap.Any("details", details))
	}
	if err != nil {
		out = append(out, zap.Error(err))
	}
	return out
}
