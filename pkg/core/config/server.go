package config

import "time"

// ServerConfig HTTP 流式服务配置
type ServerConfig struct {
	// ListenAddr 监听地址
	// 默认: ":8080"
	ListenAddr string `koanf:"listen_addr"`
	// SystemPrompt 发送给模型的系统提示词
	SystemPrompt string `koanf:"system_prompt"`
	// RequestTimeout 单次流式请求的总超时
	// 默认: 5m
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// ShutdownTimeout 优雅关闭超时
	// 默认: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Validate 验证服务配置
func (c *ServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return ErrListenAddrRequired
	}
	if c.RequestTimeout < 0 || c.ShutdownTimeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// WithDefaults 返回带默认值的配置
func (c ServerConfig) WithDefaults() ServerConfig {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// DefaultSystemPrompt 默认的 ReAct 格式系统提示词
const DefaultSystemPrompt = `You are a helpful assistant that reasons step by step.

Always answer using this format:
**Thought:** what you are considering
**Action:** the tool or step you take
**Observation:** what the step returned
... (repeat Thought/Action/Observation as needed)
**Final Answer:** the answer for the user

Use markdown tables for tabular data.`
