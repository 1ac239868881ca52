package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func NewLogger(logDir string) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "varnish-health.log"),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, zap.InfoLevel)
	return zap.New(core), nil
}

// BackendHealthLogger adapts a *zap.Logger to the poller.Logger
// interface, tagging every line as "backend_health" the way Varnish
// tags its VSL record SLT_Backend_health.
type BackendHealthLogger struct {
	base *zap.Logger
}

// NewBackendHealthLogger wraps base for use by internal/poller.
func NewBackendHealthLogger(base *zap.Logger) *BackendHealthLogger {
	return &BackendHealthLogger{base: base.With(zap.String("tag", "backend_health"))}
}

// BackendHealth logs one probe-completion line. fields must be an
// even-length list of alternating keys/values, matching zap.Logger's
// SugaredLogger convention; it's converted to structured zap fields.
func (l *BackendHealthLogger) BackendHealth(fields ...any) {
	l.base.Sugar().Infow("backend_health", fields...)
}
