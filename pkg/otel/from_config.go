package otel

import "github.com/easyops/reactstream/pkg/core/config"

// FromConfig 把全局配置中的可观测性段转换为 Config
//
// 追踪和指标共用 Enabled 开关。
func FromConfig(cfg config.ObservabilityConfig) Config {
	out := Config{
		Enabled:     cfg.Enabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Exporter:    ExporterType(cfg.Exporter),
		Tracing: TracingConfig{
			Enabled:    cfg.Enabled,
			Endpoint:   cfg.TracerEndpoint,
			Insecure:   cfg.Insecure,
			SampleRate: cfg.SampleRate,
		},
		Metrics: MetricsConfig{
			Enabled:  cfg.Enabled,
			Endpoint: cfg.MetricsEndpoint,
			Insecure: cfg.Insecure,
		},
		Logging: LoggingConfig{
			Level:          cfg.LogLevel,
			Format:         cfg.LogFormat,
			IncludeTraceID: true,
		},
	}
	return out.WithDefaults()
}
