package otel

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Logger 结构化日志，args 为 slog 风格的键值对
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// WithContext 附加 ctx 中 span 的 trace_id 与 span_id
	WithContext(ctx context.Context) Logger
	WithFields(fields map[string]any) Logger
}

// SlogLogger 基于 log/slog 的 Logger
type SlogLogger struct {
	logger    *slog.Logger
	attrs     []any
	skipTrace bool
}

// NewSlogLogger 包装已有的 slog.Logger，nil 时使用 slog.Default
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// NewLoggerFromConfig 按 LoggingConfig 创建，w 为空时写 stderr
func NewLoggerFromConfig(cfg LoggingConfig, w io.Writer) (*SlogLogger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, ErrInvalidLogFormat
	}
	return &SlogLogger{logger: slog.New(handler), skipTrace: !cfg.IncludeTraceID}, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, ErrInvalidLogLevel
}

func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, l.args(args)...) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, l.args(args)...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, l.args(args)...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, l.args(args)...) }

func (l *SlogLogger) args(args []any) []any {
	if len(l.attrs) == 0 {
		return args
	}
	return append(slices.Clip(l.attrs), args...)
}

// WithContext 直接读取 OTel context，不依赖全局 Provider
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	if l.skipTrace || ctx == nil {
		return l
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.with("trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
}

// WithFields 按键排序后追加，输出顺序稳定
func (l *SlogLogger) WithFields(fields map[string]any) Logger {
	args := make([]any, 0, len(fields)*2)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, k, fields[k])
	}
	return l.with(args...)
}

func (l *SlogLogger) with(args ...any) *SlogLogger {
	return &SlogLogger{
		logger:    l.logger,
		attrs:     append(slices.Clip(l.attrs), args...),
		skipTrace: l.skipTrace,
	}
}

// NoopLogger 丢弃所有日志
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(string, ...any)               {}
func (l *NoopLogger) Info(string, ...any)                {}
func (l *NoopLogger) Warn(string, ...any)                {}
func (l *NoopLogger) Error(string, ...any)               {}
func (l *NoopLogger) WithContext(context.Context) Logger { return l }
func (l *NoopLogger) WithFields(map[string]any) Logger   { return l }

// compile-time interface check
var (
	_ Logger = (*SlogLogger)(nil)
	_ Logger = (*NoopLogger)(nil)
)
