// Package config 加载 reactstream 的配置
//
// 来源按优先级从低到高：默认值、YAML/JSON 文件、REACTSTREAM_ 前缀的环境变量。
package config

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/easyops/reactstream/pkg/core/errors"
)

// EnvPrefix 环境变量前缀，REACTSTREAM_STREAM_CONTENT_CHUNK_CHARS 对应 stream.content_chunk_chars
const EnvPrefix = "REACTSTREAM_"

// Config 全局配置，各段由对应的 WithDefaults 与 Validate 负责
type Config struct {
	LLM           LLMConfig           `koanf:"llm"`
	Stream        StreamConfig        `koanf:"stream"`
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ObservabilityConfig 遥测设置的扁平形式，由 otel.FromConfig 展开
type ObservabilityConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
	// Exporter otlp-grpc、otlp-http、stdout 或 none
	Exporter        string  `koanf:"exporter"`
	TracerEndpoint  string  `koanf:"tracer_endpoint"`
	MetricsEndpoint string  `koanf:"metrics_endpoint"`
	Insecure        bool    `koanf:"insecure"`
	SampleRate      float64 `koanf:"sample_rate"`
	LogLevel        string  `koanf:"log_level"`
	LogFormat       string  `koanf:"log_format"`
}

// WithDefaults 指标端点未设置时沿用追踪端点
func (c ObservabilityConfig) WithDefaults() ObservabilityConfig {
	c.ServiceName = cmp.Or(c.ServiceName, "reactstream")
	c.Environment = cmp.Or(c.Environment, "development")
	c.Exporter = cmp.Or(c.Exporter, "otlp-grpc")
	c.TracerEndpoint = cmp.Or(c.TracerEndpoint, "localhost:4317")
	c.MetricsEndpoint = cmp.Or(c.MetricsEndpoint, c.TracerEndpoint)
	c.SampleRate = cmp.Or(c.SampleRate, 1.0)
	c.LogLevel = cmp.Or(c.LogLevel, "info")
	c.LogFormat = cmp.Or(c.LogFormat, "text")
	return c
}

// WithDefaults 逐段填充默认值
func (c *Config) WithDefaults() {
	c.LLM = c.LLM.WithDefaults()
	c.Stream = c.Stream.WithDefaults()
	c.Server = c.Server.WithDefaults()
	c.Observability = c.Observability.WithDefaults()
}

// Validate 各段的错误带上段名前缀
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if rate := c.Observability.SampleRate; rate < 0 || rate > 1 {
		return fmt.Errorf("observability: %w", ErrInvalidThreshold)
	}
	return nil
}

// Loader 在一个 koanf 实例上叠加多个来源，后加载的覆盖先加载的
type Loader struct {
	k *koanf.Koanf
}

// NewLoader 创建以 . 分隔键路径的加载器
func NewLoader() *Loader {
	return &Loader{k: koanf.New(".")}
}

// LoadFile 文件不存在时忽略，按扩展名选择解析器
func (l *Loader) LoadFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var parser koanf.Parser
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return l.k.Load(file.Provider(path), parser)
}

// LoadEnv 加载带 prefix 前缀的环境变量，覆盖已加载的同名键
func (l *Loader) LoadEnv(prefix string) error {
	return l.k.Load(env.Provider(prefix, ".", func(s string) string {
		return envKey(prefix, s)
	}), nil)
}

// envKey REACTSTREAM_LLM_API_KEY -> llm.api_key
//
// 只有第一个下划线分隔层级，字段名里的下划线保留。
func envKey(prefix, name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	return strings.Replace(s, "_", ".", 1)
}

// Unmarshal 按 koanf 标签把已加载的键写入 cfg
func (l *Loader) Unmarshal(cfg *Config) error {
	return l.k.Unmarshal("", cfg)
}

// Load 读取文件与环境变量，填充默认值后校验
//
// 校验失败的错误同时匹配 errors.ErrInvalidConfig 与具体原因。
func Load(configPath string) (*Config, error) {
	loader := NewLoader()
	if configPath != "" {
		if err := loader.LoadFile(configPath); err != nil {
			return nil, err
		}
	}
	if err := loader.LoadEnv(EnvPrefix); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	return cfg, nil
}
