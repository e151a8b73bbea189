// Package server 通过 HTTP 暴露流式分段服务
//
// POST /chat/stream 把用户消息交给大模型，并以 SSE 形式返回分段事件；
// GET /health 返回服务状态与当前模型。
package server

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/easyops/reactstream/pkg/core/config"
	"github.com/easyops/reactstream/pkg/core/llm"
	"github.com/easyops/reactstream/pkg/otel"
	"github.com/easyops/reactstream/pkg/stream"
)

// Server 流式分段 HTTP 服务
type Server struct {
	config    config.ServerConfig
	provider  llm.Provider
	segmenter *stream.Segmenter
	logger    otel.Logger
	metrics   otel.Metrics
	app       *fiber.App
}

// New 创建服务
//
// 未指定分段器时使用默认配置，并把系统提示词登记为预置特征串。
func New(cfg config.ServerConfig, provider llm.Provider, opts ...Option) *Server {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	cfg = cfg.WithDefaults()
	seg := options.Segmenter
	if seg == nil {
		seg = stream.New(
			stream.WithLogger(options.Logger),
			stream.WithMetrics(options.Metrics),
			stream.WithSystemSignatures(cfg.SystemPrompt),
		)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    cfg,
		provider:  provider,
		segmenter: seg,
		logger:    options.Logger,
		metrics:   options.Metrics,
		app:       app,
	}

	app.Get("/health", s.handleHealth)
	app.Post("/chat/stream", s.handleChatStream)

	return s
}

// Run 在配置的地址上启动服务
func (s *Server) Run() error {
	s.logger.Info("starting stream server", "listen", s.config.ListenAddr, "model", s.provider.Model())
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown 优雅关闭服务，超时后强制返回
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App 返回底层 fiber 应用
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) countRequest(route string, status int) {
	s.metrics.Counter(otel.MetricHTTPRequests).Add(context.Background(), 1,
		otel.NewAttr(otel.AttrHTTPRoute, route),
		otel.NewAttr(otel.AttrHTTPStatus, status),
	)
}
