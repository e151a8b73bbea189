package server

import (
	"context"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/easyops/reactstream/pkg/core/errors"
	"github.com/easyops/reactstream/pkg/core/llm"
	"github.com/easyops/reactstream/pkg/stream"
	"github.com/easyops/reactstream/pkg/transport/sse"
)

// ChatRequest POST /chat/stream 请求体
type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

// HealthResponse GET /health 响应体
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	routeHealth     = "/health"
	routeChatStream = "/chat/stream"
)

// handleHealth 返回服务状态
func (s *Server) handleHealth(c *fiber.Ctx) error {
	s.countRequest(routeHealth, fiber.StatusOK)
	return c.JSON(HealthResponse{Status: "ok", Model: s.provider.Model()})
}

// handleChatStream 以 SSE 流式返回分段事件
//
// 事件写入 io.Pipe，fasthttp 以分块编码逐帧刷新到连接上；客户端断开后
// 管道写入失败，分段器随即停止并取消上游请求。
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		s.countRequest(routeChatStream, fiber.StatusBadRequest)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		s.countRequest(routeChatStream, fiber.StatusBadRequest)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: errors.ErrEmptyMessage.Error()})
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	c.Set(fiber.HeaderContentType, sse.ContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	s.countRequest(routeChatStream, fiber.StatusOK)

	pr, pw := io.Pipe()
	go s.streamChat(threadID, req.Message, pw)

	// 长度未知（-1）触发分块传输编码
	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// streamChat 在独立的 goroutine 中驱动一次分段运行
//
// fiber 在处理函数返回后会复用 Ctx，这里只使用已复制出的值。
func (s *Server) streamChat(threadID, text string, pw *io.PipeWriter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout)
	defer cancel()

	w := sse.NewWriter(pw)
	defer w.Close()

	logger := s.logger.WithFields(map[string]any{"thread_id": threadID})

	chunks, errs := s.provider.GenerateStream(ctx, llm.NewPrompt(s.config.SystemPrompt, text))

	start := stream.StartPayload{ThreadID: threadID, Model: s.provider.Model()}
	if err := s.segmenter.Run(ctx, start, stream.NewProviderSource(chunks, errs), w); err != nil {
		logger.Warn("stream ended with upstream error", "error", err)
	}
}
