package otel

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Provider 持有一个进程的日志、追踪与指标，serve 启动时创建并在退出时 Shutdown
type Provider struct {
	mu       sync.RWMutex
	config   Config
	tracer   Tracer
	metrics  Metrics
	logger   Logger
	output   io.Writer
	shutdown []func(context.Context) error
}

var (
	globalMu       sync.RWMutex
	globalProvider *Provider
	globalTracer   Tracer
)

// NewProvider 创建 Provider
//
// 日志写到 logOutput（为空时写 stderr）；stdout 导出器也写到这里，
// 以免与 SSE 输出混在一起。
func NewProvider(ctx context.Context, cfg Config, logOutput io.Writer) (*Provider, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLoggerFromConfig(cfg.Logging, logOutput)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		config:  cfg,
		tracer:  NewNoopTracer(),
		metrics: NewNoopMetrics(),
		logger:  logger,
		output:  logOutput,
	}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		if err := p.initTracing(ctx, res); err != nil {
			return nil, err
		}
	}
	if cfg.Metrics.Enabled {
		if err := p.initMetrics(ctx, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
	}

	logger.Debug("telemetry enabled",
		"exporter", string(cfg.Exporter),
		"tracing", cfg.Tracing.Enabled,
		"metrics", cfg.Metrics.Enabled,
	)
	return p, nil
}

func (p *Provider) exporterConfig(endpoint string, insecure bool, timeout time.Duration) ExporterConfig {
	cfg := p.config.exporterConfig(endpoint, insecure, timeout)
	cfg.Writer = p.output
	return cfg
}

// sampler 根 span 按比例采样，子 span 跟随父级决定
func sampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

func (p *Provider) initTracing(ctx context.Context, res *resource.Resource) error {
	tc := p.config.Tracing
	exporter, err := NewTraceExporter(ctx, p.exporterConfig(tc.Endpoint, tc.Insecure, tc.Timeout))
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(tc.SampleRate)),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.shutdown = append(p.shutdown, tp.Shutdown)
	p.tracer = NewTracer(tp.Tracer(p.config.ServiceName))
	return nil
}

func (p *Provider) initMetrics(ctx context.Context, res *resource.Resource) error {
	mc := p.config.Metrics
	exporter, err := NewMetricExporter(ctx, p.exporterConfig(mc.Endpoint, mc.Insecure, 0))
	if err != nil {
		return err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(mc.Interval))),
	)
	otel.SetMeterProvider(mp)

	p.shutdown = append(p.shutdown, mp.Shutdown)
	p.metrics = NewOTelMetrics(mp.Meter(p.config.ServiceName))
	return nil
}

func (p *Provider) Tracer() Tracer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tracer
}

func (p *Provider) Metrics() Metrics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metrics
}

func (p *Provider) Logger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// Shutdown 刷新未导出的 span 与指标，重复调用是空操作
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, fn := range p.shutdown {
		errs = append(errs, fn(ctx))
	}
	p.shutdown = nil
	return errors.Join(errs...)
}

// SetGlobal 注册进程级 Provider
func SetGlobal(p *Provider) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalProvider = p
	globalTracer = p.Tracer()
}

func Global() *Provider {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalProvider
}

// GetTracer 未注册时返回空实现
func GetTracer() Tracer {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalTracer == nil {
		return NewNoopTracer()
	}
	return globalTracer
}

// GetMetrics 未注册时返回空实现
func GetMetrics() Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalProvider == nil {
		return NewNoopMetrics()
	}
	return globalProvider.Metrics()
}

// GetLogger 未注册时返回空实现
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalProvider == nil {
		return NewNoopLogger()
	}
	return globalProvider.Logger()
}
