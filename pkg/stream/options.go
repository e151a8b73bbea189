package stream

import (
	"github.com/easyops/reactstream/pkg/core/config"
	"github.com/easyops/reactstream/pkg/core/llm"
	"github.com/easyops/reactstream/pkg/otel"
)

// Option 分段器配置选项函数
type Option func(*Options)

// Options 分段器配置选项
type Options struct {
	HeaderTailChars   int
	ContentChunkChars int
	TableChunkChars   int
	MinRowChars       int
	DetectionWindow   int
	EventBuffer       int
	ProseStarters     []string
	SystemSignatures  []string

	Logger       otel.Logger
	Metrics      otel.Metrics
	Tracer       otel.Tracer
	TokenCounter llm.TokenCounter
}

// DefaultOptions 返回默认选项
func DefaultOptions() *Options {
	return &Options{
		HeaderTailChars:   10,
		ContentChunkChars: 100,
		TableChunkChars:   200,
		MinRowChars:       5,
		DetectionWindow:   200,
		EventBuffer:       10,
		ProseStarters:     DefaultProseStarters,
		SystemSignatures:  DefaultSystemSignatures,
		Logger:            otel.NewNoopLogger(),
		Metrics:           otel.NewNoopMetrics(),
		Tracer:            otel.NewNoopTracer(),
		TokenCounter:      llm.NewEstimatedCounter(),
	}
}

// WithHeaderTailChars 设置阶段标题后的最少内容字符数
func WithHeaderTailChars(n int) Option {
	return func(o *Options) {
		o.HeaderTailChars = n
	}
}

// WithContentChunkChars 设置普通内容的缓冲上限
func WithContentChunkChars(n int) Option {
	return func(o *Options) {
		o.ContentChunkChars = n
	}
}

// WithTableChunkChars 设置表格内容的缓冲上限
func WithTableChunkChars(n int) Option {
	return func(o *Options) {
		o.TableChunkChars = n
	}
}

// WithMinRowChars 设置完整表格行的最短长度
func WithMinRowChars(n int) Option {
	return func(o *Options) {
		o.MinRowChars = n
	}
}

// WithDetectionWindow 设置阶段检测窗口
func WithDetectionWindow(n int) Option {
	return func(o *Options) {
		o.DetectionWindow = n
	}
}

// WithEventBuffer 设置 Stream 返回通道的容量
func WithEventBuffer(n int) Option {
	return func(o *Options) {
		o.EventBuffer = n
	}
}

// WithProseStarters 替换表格结束判定的段落起始词
func WithProseStarters(words ...string) Option {
	return func(o *Options) {
		o.ProseStarters = words
	}
}

// WithSystemSignatures 追加系统提示特征串
func WithSystemSignatures(signatures ...string) Option {
	return func(o *Options) {
		merged := make([]string, 0, len(o.SystemSignatures)+len(signatures))
		merged = append(merged, o.SystemSignatures...)
		o.SystemSignatures = append(merged, signatures...)
	}
}

// WithLogger 设置日志器
func WithLogger(logger otel.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(metrics otel.Metrics) Option {
	return func(o *Options) {
		o.Metrics = metrics
	}
}

// WithTracer 设置追踪器
func WithTracer(tracer otel.Tracer) Option {
	return func(o *Options) {
		o.Tracer = tracer
	}
}

// WithTokenCounter 设置输出 Token 计数器
func WithTokenCounter(counter llm.TokenCounter) Option {
	return func(o *Options) {
		o.TokenCounter = counter
	}
}

// FromConfig 从配置创建分段器，额外选项在配置之后生效
func FromConfig(cfg config.StreamConfig, opts ...Option) *Segmenter {
	cfg = cfg.WithDefaults()
	base := []Option{
		WithHeaderTailChars(cfg.HeaderTailChars),
		WithContentChunkChars(cfg.ContentChunkChars),
		WithTableChunkChars(cfg.TableChunkChars),
		WithDetectionWindow(cfg.DetectionWindow),
		WithEventBuffer(cfg.EventBuffer),
		WithMinRowChars(cfg.MinRowChars),
	}
	if len(cfg.ProseStarters) > 0 {
		base = append(base, WithProseStarters(cfg.ProseStarters...))
	}
	if len(cfg.SystemSignatures) > 0 {
		base = append(base, WithSystemSignatures(cfg.SystemSignatures...))
	}
	return New(append(base, opts...)...)
}
