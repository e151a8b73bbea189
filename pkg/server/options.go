package server

import (
	"github.com/easyops/reactstream/pkg/otel"
	"github.com/easyops/reactstream/pkg/stream"
)

// Option 服务配置选项函数
type Option func(*Options)

// Options 服务配置选项
type Options struct {
	// Segmenter 共享的分段器，为空时按默认配置创建
	Segmenter *stream.Segmenter
	Logger    otel.Logger
	Metrics   otel.Metrics
}

// DefaultOptions 返回默认选项
func DefaultOptions() *Options {
	return &Options{
		Logger:  otel.NewNoopLogger(),
		Metrics: otel.NewNoopMetrics(),
	}
}

// WithSegmenter 设置分段器
func WithSegmenter(seg *stream.Segmenter) Option {
	return func(o *Options) {
		o.Segmenter = seg
	}
}

// WithLogger 设置日志记录器
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
