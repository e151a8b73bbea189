package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/easyops/reactstream/pkg/core/llm"
	"github.com/easyops/reactstream/pkg/core/message"
)

// TracedProvider 为 LLM Provider 增加追踪与指标
type TracedProvider struct {
	provider llm.Provider
	tracer   Tracer
	metrics  Metrics
}

// TracedProviderOption 配置 TracedProvider
type TracedProviderOption func(*TracedProvider)

// WithTracedProviderTracer 设置追踪器
func WithTracedProviderTracer(tracer Tracer) TracedProviderOption {
	return func(p *TracedProvider) {
		p.tracer = tracer
	}
}

// WithTracedProviderMetrics 设置指标收集器
func WithTracedProviderMetrics(metrics Metrics) TracedProviderOption {
	return func(p *TracedProvider) {
		p.metrics = metrics
	}
}

// NewTracedProvider 包装 LLM Provider
func NewTracedProvider(provider llm.Provider, opts ...TracedProviderOption) *TracedProvider {
	tp := &TracedProvider{
		provider: provider,
		tracer:   NewNoopTracer(),
		metrics:  NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(tp)
	}

	return tp
}

// Generate 非流式生成，记录一次 llm.generate span
func (p *TracedProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	ctx, span := p.tracer.Start(ctx, "llm.generate",
		WithSpanKind(SpanKindClient),
		WithAttributes(p.requestAttrs(req)...),
	)

	startTime := time.Now()
	resp, err := p.provider.Generate(ctx, req)
	p.recordRequest(ctx, time.Since(startTime), &resp.TokenUsage, err)

	if err == nil {
		span.SetAttributes(LLMTokens(resp.TokenUsage.PromptTokens, resp.TokenUsage.CompletionTokens, resp.TokenUsage.TotalTokens)...)
		span.AddEvent("llm.response", attribute.String("finish_reason", resp.FinishReason))
	}
	EndSpan(span, err)
	return resp, err
}

// GenerateStream 流式生成，span 覆盖整个流直到结束或失败
func (p *TracedProvider) GenerateStream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, <-chan error) {
	ctx, span := p.tracer.Start(ctx, "llm.generate_stream",
		WithSpanKind(SpanKindClient),
		WithAttributes(p.requestAttrs(req)...),
	)

	chunkCh, errCh := p.provider.GenerateStream(ctx, req)

	tracedChunkCh := make(chan llm.StreamChunk)
	tracedErrCh := make(chan error, 1)

	go func() {
		defer close(tracedChunkCh)
		defer close(tracedErrCh)

		startTime := time.Now()
		var (
			usage  *message.TokenUsage
			chunks int
			finish string
		)

		for chunk := range chunkCh {
			chunks++
			if chunk.TokenUsage != nil {
				usage = chunk.TokenUsage
			}
			if chunk.FinishReason != "" {
				finish = chunk.FinishReason
			}
			select {
			case tracedChunkCh <- chunk:
			case <-ctx.Done():
				p.finishStream(ctx, span, time.Since(startTime), usage, chunks, finish, ctx.Err())
				tracedErrCh <- ctx.Err()
				return
			}
		}

		// 错误在块通道关闭前后都可能到达，这里等待错误通道关闭
		err := <-errCh
		p.finishStream(ctx, span, time.Since(startTime), usage, chunks, finish, err)
		if err != nil {
			tracedErrCh <- err
		}
	}()

	return tracedChunkCh, tracedErrCh
}

func (p *TracedProvider) finishStream(ctx context.Context, span Span, d time.Duration, usage *message.TokenUsage, chunks int, finish string, err error) {
	p.recordRequest(ctx, d, usage, err)
	span.SetAttributes(attribute.Int("llm.stream.chunks", chunks))
	if usage != nil {
		span.SetAttributes(LLMTokens(usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)...)
	}
	if err == nil && finish != "" {
		span.AddEvent("llm.response", attribute.String("finish_reason", finish))
	}
	EndSpan(span, err)
}

// Name 返回提供商名称
func (p *TracedProvider) Name() string {
	return p.provider.Name()
}

// Model 返回模型名称
func (p *TracedProvider) Model() string {
	return p.provider.Model()
}

// Close 关闭底层提供商
func (p *TracedProvider) Close() error {
	return p.provider.Close()
}

func (p *TracedProvider) requestAttrs(req llm.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		LLMProvider(p.provider.Name()),
		LLMModel(p.provider.Model()),
		attribute.Int(AttrMessageCount, len(req.Messages)),
	}
}

// recordRequest 记录一次 LLM 调用的指标
func (p *TracedProvider) recordRequest(ctx context.Context, d time.Duration, usage *message.TokenUsage, err error) {
	providerAttr := NewAttr(AttrLLMProvider, p.provider.Name())
	modelAttr := NewAttr(AttrLLMModel, p.provider.Model())

	status := "success"
	if err != nil {
		status = "error"
		p.metrics.Counter(MetricLLMErrors).Add(ctx, 1, providerAttr, modelAttr)
	} else if usage != nil {
		p.metrics.Counter(MetricLLMTokensPrompt).Add(ctx, int64(usage.PromptTokens), providerAttr, modelAttr)
		p.metrics.Counter(MetricLLMTokensCompletion).Add(ctx, int64(usage.CompletionTokens), providerAttr, modelAttr)
		p.metrics.Counter(MetricLLMTokensTotal).Add(ctx, int64(usage.TotalTokens), providerAttr, modelAttr)
	}

	p.metrics.Counter(MetricLLMRequests).Add(ctx, 1, providerAttr, modelAttr, NewAttr("status", status))
	p.metrics.Histogram(MetricLLMRequestDuration).Record(ctx, float64(d.Milliseconds()), providerAttr, modelAttr)
}

// NewRetryHook 返回记录 llm.retries 指标的重试钩子
func NewRetryHook(metrics Metrics, logger Logger, provider string) llm.RetryHook {
	return func(attempt int, err error) {
		metrics.Counter(MetricLLMRetries).Add(context.Background(), 1,
			NewAttr(AttrLLMProvider, provider),
			NewAttr("attempt", attempt),
		)
		logger.Warn("llm request failed, retrying", "provider", provider, "attempt", attempt, "error", err)
	}
}

// compile-time interface check
var _ llm.Provider = (*TracedProvider)(nil)
