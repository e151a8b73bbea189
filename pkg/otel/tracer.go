// Package otel 提供分段流的日志、指标与追踪
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer 追踪器
//
// 分段器为每次运行开启 stream.run，模型调用开启 llm.generate_stream，
// 两者通过 context 串联成同一条链路。
type Tracer interface {
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
	SpanFromContext(ctx context.Context) Span
}

// Span 一次被追踪的操作
type Span interface {
	End()
	SetAttributes(attrs ...attribute.KeyValue)
	AddEvent(name string, attrs ...attribute.KeyValue)
	RecordError(err error)
	SetStatus(code StatusCode, description string)
	SpanContext() SpanContext
}

// SpanContext 日志关联用的链路标识，无效 span 返回零值
type SpanContext struct {
	TraceID string
	SpanID  string
	Sampled bool
}

// IsValid 是否携带链路标识
func (sc SpanContext) IsValid() bool {
	return sc.TraceID != "" && sc.SpanID != ""
}

// StatusCode span 结束状态
type StatusCode int

const (
	StatusUnset StatusCode = iota
	StatusOK
	StatusError
)

func (c StatusCode) code() codes.Code {
	switch c {
	case StatusOK:
		return codes.Ok
	case StatusError:
		return codes.Error
	default:
		return codes.Unset
	}
}

// SpanKind span 在调用链中的角色
type SpanKind int

const (
	// SpanKindInternal 进程内处理，如分段运行
	SpanKindInternal SpanKind = iota
	// SpanKindServer 入站 HTTP 请求
	SpanKindServer
	// SpanKindClient 出站模型调用
	SpanKindClient
)

func (k SpanKind) kind() trace.SpanKind {
	switch k {
	case SpanKindServer:
		return trace.SpanKindServer
	case SpanKindClient:
		return trace.SpanKindClient
	default:
		return trace.SpanKindInternal
	}
}

// SpanOption span 启动选项
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind  SpanKind
	attrs []attribute.KeyValue
}

func (c spanConfig) startOptions() []trace.SpanStartOption {
	opts := []trace.SpanStartOption{trace.WithSpanKind(c.kind.kind())}
	if len(c.attrs) > 0 {
		opts = append(opts, trace.WithAttributes(c.attrs...))
	}
	return opts
}

// WithSpanKind 设置 span 角色
func WithSpanKind(kind SpanKind) SpanOption {
	return func(c *spanConfig) {
		c.kind = kind
	}
}

// WithAttributes 追加启动属性
func WithAttributes(attrs ...attribute.KeyValue) SpanOption {
	return func(c *spanConfig) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// EndSpan 按 err 设置状态后结束 span
func EndSpan(span Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(StatusError, err.Error())
	} else {
		span.SetStatus(StatusOK, "")
	}
	span.End()
}

// OTelTracer 基于 trace.Tracer 的实现
type OTelTracer struct {
	tracer trace.Tracer
}

// NewTracer 包装 SDK 追踪器
func NewTracer(tracer trace.Tracer) *OTelTracer {
	return &OTelTracer{tracer: tracer}
}

func (t *OTelTracer) Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	var cfg spanConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx, span := t.tracer.Start(ctx, name, cfg.startOptions()...)
	return ctx, OTelSpan{span: span}
}

func (t *OTelTracer) SpanFromContext(ctx context.Context) Span {
	return OTelSpan{span: trace.SpanFromContext(ctx)}
}

// OTelSpan 包装 trace.Span
type OTelSpan struct {
	span trace.Span
}

func (s OTelSpan) End() { s.span.End() }

func (s OTelSpan) SetAttributes(attrs ...attribute.KeyValue) { s.span.SetAttributes(attrs...) }

func (s OTelSpan) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s OTelSpan) RecordError(err error) { s.span.RecordError(err) }

func (s OTelSpan) SetStatus(code StatusCode, description string) {
	s.span.SetStatus(code.code(), description)
}

func (s OTelSpan) SpanContext() SpanContext {
	sc := s.span.SpanContext()
	if !sc.IsValid() {
		return SpanContext{}
	}
	return SpanContext{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
		Sampled: sc.IsSampled(),
	}
}

// NoopTracer 关闭追踪时使用
type NoopTracer struct{}

// NewNoopTracer 创建空追踪器
func NewNoopTracer() *NoopTracer {
	return &NoopTracer{}
}

func (NoopTracer) Start(ctx context.Context, _ string, _ ...SpanOption) (context.Context, Span) {
	return ctx, noopSpan
}

func (NoopTracer) SpanFromContext(context.Context) Span { return noopSpan }

// NoopSpan 丢弃所有记录
type NoopSpan struct{}

var noopSpan Span = NoopSpan{}

func (NoopSpan) End()                                   {}
func (NoopSpan) SetAttributes(...attribute.KeyValue)    {}
func (NoopSpan) AddEvent(string, ...attribute.KeyValue) {}
func (NoopSpan) RecordError(error)                      {}
func (NoopSpan) SetStatus(StatusCode, string)           {}
func (NoopSpan) SpanContext() SpanContext               { return SpanContext{} }

// compile-time interface check
var (
	_ Tracer = (*OTelTracer)(nil)
	_ Tracer = (*NoopTracer)(nil)
	_ Span   = OTelSpan{}
	_ Span   = NoopSpan{}
)
