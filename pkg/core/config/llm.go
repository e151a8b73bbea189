package config

import "time"

// Provider OpenAI 兼容服务的种类
//
// 种类决定默认端点、默认模型以及是否需要 API 密钥。
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderDeepSeek Provider = "deepseek"
	ProviderQwen     Provider = "qwen"
	ProviderOllama   Provider = "ollama"
	ProviderVLLM     Provider = "vllm"
)

type providerDefaults struct {
	baseURL string
	model   string
	keyless bool
}

// openai 走 go-openai 的内置端点
var knownProviders = map[Provider]providerDefaults{
	ProviderOpenAI:   {model: "gpt-4.1"},
	ProviderDeepSeek: {baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
	ProviderQwen:     {baseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", model: "qwen-turbo"},
	ProviderOllama:   {baseURL: "http://localhost:11434/v1", model: "llama3.2", keyless: true},
	ProviderVLLM:     {baseURL: "http://localhost:8000/v1", model: "default", keyless: true},
}

// IsValid 是否为已知种类
func (p Provider) IsValid() bool {
	_, ok := knownProviders[p]
	return ok
}

// DefaultBaseURL 未配置 base_url 时使用的端点，openai 返回空串
func (p Provider) DefaultBaseURL() string { return knownProviders[p].baseURL }

// DefaultModel 未配置 model 时使用的模型
func (p Provider) DefaultModel() string { return knownProviders[p].model }

// RequiresAPIKey 本地部署的服务不校验密钥
func (p Provider) RequiresAPIKey() bool { return !knownProviders[p].keyless }

// LLMConfig 上游模型设置，对应配置文件的 llm 段
type LLMConfig struct {
	Provider Provider `koanf:"provider"`
	Model    string   `koanf:"model"`
	APIKey   string   `koanf:"api_key"`
	// BaseURL 为空时取 Provider.DefaultBaseURL
	BaseURL string `koanf:"base_url"`

	// Temperature 默认 0.7
	Temperature float64 `koanf:"temperature"`
	// MaxTokens 默认 4096
	MaxTokens int `koanf:"max_tokens"`

	// Timeout 只作用于非流式请求，默认 30s，超过 5m 截断
	Timeout time.Duration `koanf:"timeout"`
	// MaxRetries 建立连接阶段的重试次数，默认 3，超过 10 截断
	MaxRetries int           `koanf:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
}

const (
	maxLLMTimeout = 5 * time.Minute
	maxLLMRetries = 10
)

// Validate 校验并截断越界的超时与重试次数
func (c *LLMConfig) Validate() error {
	switch {
	case !c.Provider.IsValid():
		return ErrInvalidProvider
	case c.Model == "":
		return ErrModelRequired
	case c.Timeout < 0:
		return ErrInvalidTimeout
	case c.MaxRetries < 0:
		return ErrInvalidMaxRetries
	}
	c.Timeout = min(c.Timeout, maxLLMTimeout)
	c.MaxRetries = min(c.MaxRetries, maxLLMRetries)
	return nil
}

// WithDefaults 填充零值字段
func (c LLMConfig) WithDefaults() LLMConfig {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Model == "" {
		c.Model = c.Provider.DefaultModel()
	}
	if c.BaseURL == "" {
		c.BaseURL = c.Provider.DefaultBaseURL()
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	return c
}
