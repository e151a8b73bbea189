package otel

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ExporterType 导出协议
type ExporterType string

const (
	ExporterOTLPGRPC ExporterType = "otlp-grpc"
	ExporterOTLPHTTP ExporterType = "otlp-http"
	// ExporterStdout 写到 ExporterConfig.Writer，本地调试用
	ExporterStdout ExporterType = "stdout"
	ExporterNone   ExporterType = "none"

	compressionGzip = "gzip"
)

// ExporterConfig 单个信号的导出设置
type ExporterConfig struct {
	Type        ExporterType      `json:"type" yaml:"type"`
	Endpoint    string            `json:"endpoint" yaml:"endpoint"`
	Insecure    bool              `json:"insecure" yaml:"insecure"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
	Timeout     time.Duration     `json:"timeout" yaml:"timeout"`
	Compression string            `json:"compression" yaml:"compression"`

	// Writer stdout 导出器的目标，为空时写 os.Stdout。
	// serve 把它指向日志输出，避免与 SSE 帧混在一起。
	Writer io.Writer `json:"-" yaml:"-"`
}

// DefaultExporterConfig 本地 collector 的 gRPC 端点
func DefaultExporterConfig() ExporterConfig {
	return ExporterConfig{
		Type:     ExporterOTLPGRPC,
		Endpoint: "localhost:4317",
		Insecure: true,
		Timeout:  10 * time.Second,
	}
}

func (c ExporterConfig) writer() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

func (c ExporterConfig) gzip() bool {
	return c.Compression == compressionGzip
}

// NewTraceExporter 按类型创建 span 导出器
func NewTraceExporter(ctx context.Context, cfg ExporterConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Type {
	case ExporterOTLPGRPC:
		return otlptrace.New(ctx, otlptracegrpc.NewClient(grpcTraceOptions(cfg)...))
	case ExporterOTLPHTTP:
		return otlptracehttp.New(ctx, httpTraceOptions(cfg)...)
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(cfg.writer()), stdouttrace.WithPrettyPrint())
	case ExporterNone:
		return discardSpans{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidExporter, cfg.Type)
	}
}

// NewMetricExporter 按类型创建指标导出器
func NewMetricExporter(ctx context.Context, cfg ExporterConfig) (sdkmetric.Exporter, error) {
	switch cfg.Type {
	case ExporterOTLPGRPC:
		return otlpmetricgrpc.New(ctx, grpcMetricOptions(cfg)...)
	case ExporterOTLPHTTP:
		return otlpmetrichttp.New(ctx, httpMetricOptions(cfg)...)
	case ExporterStdout:
		return stdoutmetric.New(stdoutmetric.WithWriter(cfg.writer()), stdoutmetric.WithPrettyPrint())
	case ExporterNone:
		return discardMetrics{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidExporter, cfg.Type)
	}
}

func grpcTraceOptions(cfg ExporterConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	if cfg.gzip() {
		opts = append(opts, otlptracegrpc.WithCompressor(compressionGzip))
	}
	return opts
}

func httpTraceOptions(cfg ExporterConfig) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(cfg.Timeout))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if cfg.gzip() {
		opts = append(opts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
	}
	return opts
}

func grpcMetricOptions(cfg ExporterConfig) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts,
			otlpmetricgrpc.WithInsecure(),
			otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlpmetricgrpc.WithTimeout(cfg.Timeout))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
	}
	if cfg.gzip() {
		opts = append(opts, otlpmetricgrpc.WithCompressor(compressionGzip))
	}
	return opts
}

func httpMetricOptions(cfg ExporterConfig) []otlpmetrichttp.Option {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlpmetrichttp.WithTimeout(cfg.Timeout))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	if cfg.gzip() {
		opts = append(opts, otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression))
	}
	return opts
}

// discardSpans 启用追踪但不导出，span 仍然产生以便日志关联 trace_id
type discardSpans struct{}

func (discardSpans) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (discardSpans) Shutdown(context.Context) error                             { return nil }

// discardMetrics 启用指标但不导出
type discardMetrics struct{}

func (discardMetrics) Temporality(sdkmetric.InstrumentKind) metricdata.Temporality {
	return metricdata.CumulativeTemporality
}

func (discardMetrics) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(kind)
}

func (discardMetrics) Export(context.Context, *metricdata.ResourceMetrics) error { return nil }
func (discardMetrics) ForceFlush(context.Context) error                          { return nil }
func (discardMetrics) Shutdown(context.Context) error                            { return nil }
