package otel_test

import (
	"errors"
	"testing"
	"time"

	"github.com/easyops/reactstream/pkg/core/config"
	"github.com/easyops/reactstream/pkg/otel"
)

func TestDefaultConfig(t *testing.T) {
	cfg := otel.DefaultConfig()

	if cfg.Enabled {
		t.Fatal("expected Enabled to be false by default")
	}
	if cfg.ServiceName != "reactstream" {
		t.Fatalf("expected ServiceName 'reactstream', got %s", cfg.ServiceName)
	}
	if cfg.Exporter != otel.ExporterOTLPGRPC {
		t.Fatalf("expected otlp-grpc exporter, got %s", cfg.Exporter)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" || !cfg.Tracing.Insecure {
		t.Fatalf("unexpected tracing defaults: %+v", cfg.Tracing)
	}
	if cfg.Tracing.SampleRate != 1.0 || cfg.Tracing.Timeout != 30*time.Second {
		t.Fatalf("unexpected tracing defaults: %+v", cfg.Tracing)
	}
	if cfg.Metrics.Interval != 60*time.Second {
		t.Fatalf("expected Metrics.Interval 60s, got %s", cfg.Metrics.Interval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" || !cfg.Logging.IncludeTraceID {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  otel.Config
		wantErr error
	}{
		{"valid config", otel.DefaultConfig(), nil},
		{"zero value", otel.Config{}, nil},
		{"negative sample rate", otel.Config{Tracing: otel.TracingConfig{SampleRate: -0.1}}, otel.ErrInvalidSampleRate},
		{"sample rate too high", otel.Config{Tracing: otel.TracingConfig{SampleRate: 1.5}}, otel.ErrInvalidSampleRate},
		{"stdout exporter", otel.Config{Exporter: otel.ExporterStdout}, nil},
		{"unknown exporter", otel.Config{Exporter: "zipkin"}, otel.ErrInvalidExporter},
		{"json logs", otel.Config{Logging: otel.LoggingConfig{Format: "json"}}, nil},
		{"unknown log format", otel.Config{Logging: otel.LoggingConfig{Format: "xml"}}, otel.ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_WithDefaults_PreservesSetValues(t *testing.T) {
	cfg := otel.Config{
		ServiceName: "my-service",
		Exporter:    otel.ExporterOTLPHTTP,
		Tracing:     otel.TracingConfig{Endpoint: "custom:4318"},
	}

	result := cfg.WithDefaults()

	if result.ServiceName != "my-service" {
		t.Fatalf("expected ServiceName 'my-service', got %s", result.ServiceName)
	}
	if result.Exporter != otel.ExporterOTLPHTTP {
		t.Fatalf("expected otlp-http exporter, got %s", result.Exporter)
	}
	if result.Tracing.Endpoint != "custom:4318" {
		t.Fatalf("expected Tracing.Endpoint 'custom:4318', got %s", result.Tracing.Endpoint)
	}
	if result.Environment != "development" {
		t.Fatalf("expected Environment 'development', got %s", result.Environment)
	}
	if result.Metrics.Endpoint != "localhost:4317" {
		t.Fatalf("expected default metrics endpoint, got %s", result.Metrics.Endpoint)
	}
}

func TestLookupMetric(t *testing.T) {
	d, ok := otel.LookupMetric(otel.MetricStreamRunDuration)
	if !ok {
		t.Fatal("expected stream.run.duration to be predefined")
	}
	if d.Unit != otel.UnitMilliseconds || d.Type != "histogram" {
		t.Fatalf("unexpected description: %+v", d)
	}
	if _, ok := otel.LookupMetric("no.such.metric"); ok {
		t.Fatal("expected unknown metric lookup to fail")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := otel.FromConfig(config.ObservabilityConfig{
		Enabled:         true,
		Exporter:        "otlp-http",
		TracerEndpoint:  "collector:4318",
		MetricsEndpoint: "collector:4318",
		SampleRate:      0.25,
		LogLevel:        "debug",
		LogFormat:       "json",
	})

	if !cfg.Tracing.Enabled || !cfg.Metrics.Enabled {
		t.Fatal("expected tracing and metrics to follow Enabled")
	}
	if cfg.Exporter != otel.ExporterOTLPHTTP {
		t.Fatalf("expected otlp-http exporter, got %s", cfg.Exporter)
	}
	if cfg.Tracing.Endpoint != "collector:4318" || cfg.Tracing.SampleRate != 0.25 {
		t.Fatalf("unexpected tracing config: %+v", cfg.Tracing)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.ServiceName != "reactstream" {
		t.Fatalf("expected default service name, got %s", cfg.ServiceName)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a valid config, got %v", err)
	}
}
