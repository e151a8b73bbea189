// Package servecmder 提供启动 HTTP 流式服务的命令
package servecmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/easyops/reactstream/pkg/core/config"
	"github.com/easyops/reactstream/pkg/core/llm"
	"github.com/easyops/reactstream/pkg/otel"
	"github.com/easyops/reactstream/pkg/server"
	"github.com/easyops/reactstream/pkg/stream"
)

type serveCommander struct {
	configPath string
	listen     string
	debug      bool
	logOutput  io.Writer
}

const serveLongDesc string = `Run the streaming server.

POST /chat/stream forwards the user message to the configured model and
returns the segmented response as server-sent events.`

const serveShortDesc string = "Run the HTTP streaming server"

// NewServeCmd 创建 serve 命令
func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configPath, err = cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %w", err)
			}
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.logOutput = cmd.ErrOrStderr()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides server.listen_addr)")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.listen != "" {
		cfg.Server.ListenAddr = c.listen
	}

	obs := otel.FromConfig(cfg.Observability)
	if c.debug {
		obs.Logging.Level = "debug"
	}
	telemetry, err := otel.NewProvider(ctx, obs, c.logOutput)
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()
	otel.SetGlobal(telemetry)

	logger := telemetry.Logger()
	metrics := telemetry.Metrics()

	base, err := llm.FromConfig(cfg.LLM,
		llm.WithRetryHook(otel.NewRetryHook(metrics, logger, string(cfg.LLM.Provider))),
	)
	if err != nil {
		return fmt.Errorf("failed to create llm provider: %w", err)
	}
	defer base.Close()

	provider := otel.NewTracedProvider(base,
		otel.WithTracedProviderTracer(telemetry.Tracer()),
		otel.WithTracedProviderMetrics(metrics),
	)

	seg := stream.FromConfig(cfg.Stream,
		stream.WithLogger(logger),
		stream.WithMetrics(metrics),
		stream.WithTracer(telemetry.Tracer()),
		stream.WithTokenCounter(llm.DefaultTokenCounter(base.Model())),
		stream.WithSystemSignatures(cfg.Server.SystemPrompt),
	)

	srv := server.New(cfg.Server, provider,
		server.WithSegmenter(seg),
		server.WithLogger(logger),
		server.WithMetrics(metrics),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down stream server", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
