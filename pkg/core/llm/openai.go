package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/easyops/reactstream/pkg/core/errors"
	"github.com/easyops/reactstream/pkg/core/message"
)

// OpenAIClient Chat Completions 客户端
//
// DeepSeek、通义千问 compatible-mode、Ollama /v1 与 vLLM 都走这一实现，
// 区别只在端点和默认模型。
type OpenAIClient struct {
	client  *openai.Client
	options *Options
}

// NewOpenAI 创建客户端
func NewOpenAI(opts ...Option) (*OpenAIClient, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.RequireAPIKey && options.APIKey == "" {
		return nil, errors.ErrInvalidAPIKey
	}

	cfg := openai.DefaultConfig(options.APIKey)
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), options: options}, nil
}

func (c *OpenAIClient) Name() string  { return c.options.Name }
func (c *OpenAIClient) Model() string { return c.options.Model }
func (c *OpenAIClient) Close() error  { return nil }

// Generate 非流式补全，可重试错误按 Options 退避重试
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	if c.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.Timeout)
		defer cancel()
	}

	chatReq := c.chatRequest(req)

	var resp openai.ChatCompletionResponse
	err := retry(ctx, c.options.MaxRetries, c.options.RetryDelay, c.options.OnRetry, func() error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, chatReq)
		return mapOpenAIError(callErr)
	})
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{ID: resp.ID, TokenUsage: usageOf(resp.Usage)}, nil
	}

	choice := resp.Choices[0]
	return Response{
		ID:           resp.ID,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		TokenUsage:   usageOf(resp.Usage),
	}, nil
}

func (c *OpenAIClient) chatRequest(req Request) openai.ChatCompletionRequest {
	chatReq := openai.ChatCompletionRequest{
		Model:       c.options.Model,
		Messages:    make([]openai.ChatCompletionMessage, len(req.Messages)),
		Temperature: float32(c.options.Temperature),
		MaxTokens:   c.options.MaxTokens,
		Stop:        req.Stop,
	}
	for i, m := range req.Messages {
		chatReq.Messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = *req.MaxTokens
	}
	return chatReq
}

func usageOf(u openai.Usage) message.TokenUsage {
	return message.NewTokenUsage(u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

// mapOpenAIError 把 HTTP 状态归到 core/errors 的哨兵错误，决定是否重试
func mapOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if !stderrors.As(err, &apiErr) {
		return errors.WrapError(err, "openai request failed")
	}

	switch apiErr.HTTPStatusCode {
	case http.StatusUnauthorized:
		return errors.ErrInvalidAPIKey
	case http.StatusNotFound:
		return errors.ErrModelNotFound
	case http.StatusTooManyRequests:
		return errors.ErrRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.ErrTimeout
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return errors.ErrProviderUnavailable
	default:
		return fmt.Errorf("openai error (code=%d): %w", apiErr.HTTPStatusCode, err)
	}
}

// compile-time interface check
var _ Provider = (*OpenAIClient)(nil)
