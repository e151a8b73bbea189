package llm

import (
	"time"

	"github.com/easyops/reactstream/pkg/core/message"
)

// Option 客户端选项
type Option func(*Options)

// Options 客户端设置，通常由 FromConfig 从 LLMConfig 填充
type Options struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string

	// Timeout 只约束非流式请求，流式请求的寿命由调用方的 ctx 决定
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	OnRetry    RetryHook

	Temperature float64
	MaxTokens   int

	// RequireAPIKey 本地部署的 Ollama 与 vLLM 不需要密钥
	RequireAPIKey bool
}

// DefaultOptions 默认设置
func DefaultOptions() *Options {
	return &Options{
		Name:          "openai",
		Model:         "gpt-4o",
		Timeout:       30 * time.Second,
		MaxRetries:    3,
		RetryDelay:    time.Second,
		Temperature:   0.7,
		MaxTokens:     4096,
		RequireAPIKey: true,
	}
}

func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

func WithAPIKey(key string) Option {
	return func(o *Options) { o.APIKey = key }
}

func WithBaseURL(url string) Option {
	return func(o *Options) { o.BaseURL = url }
}

// WithModel 空字符串保留默认模型
func WithModel(model string) Option {
	return func(o *Options) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

// WithoutAPIKey 允许无密钥访问
func WithoutAPIKey() Option {
	return func(o *Options) { o.RequireAPIKey = false }
}

// WithRetryHook 每次重试前回调，serve 用它记录 llm.retries
func WithRetryHook(hook RetryHook) Option {
	return func(o *Options) { o.OnRetry = hook }
}

// RequestOption 单次请求的覆盖项
type RequestOption func(*Request)

// NewPrompt 构建 system + user 两条消息的请求，system 为空时省略
func NewPrompt(system, user string, opts ...RequestOption) Request {
	msgs := make([]message.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, message.NewSystemMessage(system))
	}
	msgs = append(msgs, message.NewUserMessage(user))
	return NewRequest(msgs, opts...)
}

// NewRequest 按给定消息构建请求
func NewRequest(messages []message.Message, opts ...RequestOption) Request {
	req := Request{Messages: messages}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

func WithRequestTemperature(t float64) RequestOption {
	return func(r *Request) { r.Temperature = &t }
}

func WithRequestMaxTokens(n int) RequestOption {
	return func(r *Request) { r.MaxTokens = &n }
}

// WithStop 停止序列，ReAct 提示常用 "Observation:" 截断模型自行编造的观察
func WithStop(stop ...string) RequestOption {
	return func(r *Request) { r.Stop = stop }
}
