// Package zapsink forwards dispatcher messages to a zap.Logger.
package zapsink

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/laburec/bbutil/internal/logging"
)

// Writer is a logging.Writer backed by zap.
type Writer struct {
	logging.Filter

	logger *zap.Logger
}

// New wraps logger. Categories outside index are ignored; an empty index
// forwards everything.
func New(logger *zap.Logger, index ...logging.Level) *Writer {
	return &Writer{Filter: logging.Filter{Index: index}, logger: logger}
}

// NewProduction builds a JSON zap logger writing to the given paths.
func NewProduction(paths ...string) (*Writer, error) {
	cfg := zap.NewProductionConfig()
	if len(paths) > 0 {
		cfg.OutputPaths = paths
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return New(logger), nil
}

func (w *Writer) Name() string { return "zap" }

func (w *Writer) Open() error { return nil }

func (w *Writer) Close() error {
	// Sync on a console-backed logger fails with EINVAL on some platforms.
	_ = w.logger.Sync()
	return nil
}

func (w *Writer) Clear() error { return nil }

func (w *Writer) Write(m logging.Message) {
	fields := []zap.Field{
		zap.String("app", m.App),
		zap.Time("time", m.Time),
	}
	if m.Tag != "" {
		fields = append(fields, zap.String("tag", m.Tag))
	}
	if m.Raw {
		fields = append(fields, zap.Bool("raw", true))
	}
	if m.Level == logging.LevelProgress {
		fields = append(fields,
			zap.Int("counter", m.Counter),
			zap.Int("limit", m.Limit),
			zap.Float64("value", m.Value),
		)
	}
	if m.Level != "" {
		fields = append(fields, zap.String("category", string(m.Level)))
	}

	if ce := w.logger.Check(Level(m.Level), m.Content); ce != nil {
		ce.Write(fields...)
	}
}

// Level maps a dispatcher category onto a zap level.
func Level(l logging.Level) zapcore.Level {
	switch l {
	case logging.LevelError, logging.LevelException:
		return zapcore.ErrorLevel
	case logging.LevelWarn:
		return zapcore.WarnLevel
	case logging.LevelDebug1, logging.LevelDebug2, logging.LevelDebug3:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
