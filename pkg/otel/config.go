package otel

import (
	"cmp"
	"time"
)

// Config 遥测设置
//
// Enabled 只控制追踪与指标的导出；日志总是按 Logging 创建。
// 在 serve 中由 FromConfig 从全局配置的 observability 段转换而来。
type Config struct {
	Enabled        bool         `koanf:"enabled"`
	ServiceName    string       `koanf:"service_name"`
	ServiceVersion string       `koanf:"service_version"`
	Environment    string       `koanf:"environment"`
	Exporter       ExporterType `koanf:"exporter"`

	Tracing TracingConfig `koanf:"tracing"`
	Metrics MetricsConfig `koanf:"metrics"`
	Logging LoggingConfig `koanf:"logging"`
}

// TracingConfig span 导出
type TracingConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
	Insecure bool   `koanf:"insecure"`
	// SampleRate 根 span 采样率，子 span 跟随父级
	SampleRate float64       `koanf:"sample_rate"`
	Timeout    time.Duration `koanf:"timeout"`
}

// MetricsConfig 指标导出
type MetricsConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Endpoint string        `koanf:"endpoint"`
	Insecure bool          `koanf:"insecure"`
	Interval time.Duration `koanf:"interval"`
}

// LoggingConfig 日志输出
type LoggingConfig struct {
	// Level debug、info、warn 或 error
	Level string `koanf:"level"`
	// Format text 或 json
	Format string `koanf:"format"`
	// IncludeTraceID 在日志中附加当前 span 的 trace_id 与 span_id
	IncludeTraceID bool `koanf:"include_trace_id"`
}

const defaultCollector = "localhost:4317"

// DefaultConfig 默认关闭导出，日志为 info 级别的文本格式
func DefaultConfig() Config {
	return Config{
		ServiceName:    "reactstream",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		Exporter:       ExporterOTLPGRPC,
		Tracing: TracingConfig{
			Endpoint:   defaultCollector,
			Insecure:   true,
			SampleRate: 1.0,
			Timeout:    30 * time.Second,
		},
		Metrics: MetricsConfig{
			Endpoint: defaultCollector,
			Insecure: true,
			Interval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			IncludeTraceID: true,
		},
	}
}

// Validate 零值字段视为未设置
func (c *Config) Validate() error {
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	switch c.Exporter {
	case "", ExporterOTLPGRPC, ExporterOTLPHTTP, ExporterStdout, ExporterNone:
	default:
		return ErrInvalidExporter
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// WithDefaults 用 DefaultConfig 填充零值字段，开关类字段保持原值
func (c Config) WithDefaults() Config {
	d := DefaultConfig()

	c.ServiceName = cmp.Or(c.ServiceName, d.ServiceName)
	c.ServiceVersion = cmp.Or(c.ServiceVersion, d.ServiceVersion)
	c.Environment = cmp.Or(c.Environment, d.Environment)
	c.Exporter = cmp.Or(c.Exporter, d.Exporter)

	c.Tracing.Endpoint = cmp.Or(c.Tracing.Endpoint, d.Tracing.Endpoint)
	c.Tracing.SampleRate = cmp.Or(c.Tracing.SampleRate, d.Tracing.SampleRate)
	c.Tracing.Timeout = cmp.Or(c.Tracing.Timeout, d.Tracing.Timeout)

	c.Metrics.Endpoint = cmp.Or(c.Metrics.Endpoint, d.Metrics.Endpoint)
	c.Metrics.Interval = cmp.Or(c.Metrics.Interval, d.Metrics.Interval)

	c.Logging.Level = cmp.Or(c.Logging.Level, d.Logging.Level)
	c.Logging.Format = cmp.Or(c.Logging.Format, d.Logging.Format)

	return c
}

// exporterConfig 追踪与指标共用导出类型，端点与超时各自配置
func (c Config) exporterConfig(endpoint string, insecure bool, timeout time.Duration) ExporterConfig {
	cfg := DefaultExporterConfig()
	cfg.Type = c.Exporter
	cfg.Endpoint = endpoint
	cfg.Insecure = insecure
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return cfg
}
