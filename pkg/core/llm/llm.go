// Package llm 是分段器的上游：把对话发给 OpenAI 兼容服务并以增量块返回
package llm

import (
	"context"

	"github.com/easyops/reactstream/pkg/core/message"
)

// Provider 模型服务
//
// GenerateStream 返回的块通道在流结束后关闭，错误通道最多产生一个错误。
// 调用方提前停止读取时必须取消 ctx，否则生产 goroutine 会阻塞在发送上。
type Provider interface {
	Generate(ctx context.Context, req Request) (Response, error)
	GenerateStream(ctx context.Context, req Request) (<-chan StreamChunk, <-chan error)
	Name() string
	Model() string
	Close() error
}

// Request 一次补全请求，指针字段为空时使用 Options 中的默认值
type Request struct {
	Messages    []message.Message
	Temperature *float64
	MaxTokens   *int
	Stop        []string
}

// Response 非流式补全结果
type Response struct {
	ID           string             `json:"id"`
	Content      string             `json:"content"`
	TokenUsage   message.TokenUsage `json:"token_usage"`
	FinishReason string             `json:"finish_reason"`
}

// StreamChunk 流式补全的一个增量
//
// 最后一个块 Done 为 true，携带结束原因；上游开启用量统计时还带 TokenUsage。
type StreamChunk struct {
	Content      string              `json:"content"`
	Role         message.Role        `json:"role,omitempty"`
	Done         bool                `json:"done"`
	FinishReason string              `json:"finish_reason,omitempty"`
	TokenUsage   *message.TokenUsage `json:"token_usage,omitempty"`
}
