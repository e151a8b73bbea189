package config

import "errors"

// 配置验证相关错误
var (
	// ErrModelRequired 模型名称必填
	ErrModelRequired = errors.New("model name is required")
	// ErrInvalidProvider 提供商无效
	ErrInvalidProvider = errors.New("unsupported llm provider")
	// ErrInvalidTimeout 超时时间无效
	ErrInvalidTimeout = errors.New("invalid timeout value")
	// ErrInvalidMaxRetries 重试次数无效
	ErrInvalidMaxRetries = errors.New("invalid max retries value")
	// ErrInvalidThreshold 分段阈值无效
	ErrInvalidThreshold = errors.New("stream thresholds must be positive")
	// ErrInvalidBufferSize 事件缓冲区大小无效
	ErrInvalidBufferSize = errors.New("event buffer size must not be negative")
	// ErrListenAddrRequired 监听地址必填
	ErrListenAddrRequired = errors.New("listen address is required")
	// ErrUnsupportedFormat 配置文件格式不支持
	ErrUnsupportedFormat = errors.New("unsupported config file format")
)
