// Package replaycmder 提供离线回放录制流的命令
package replaycmder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/easyops/reactstream/pkg/core/config"
	"github.com/easyops/reactstream/pkg/core/message"
	"github.com/easyops/reactstream/pkg/otel"
	"github.com/easyops/reactstream/pkg/stream"
	"github.com/easyops/reactstream/pkg/transport/sse"
)

type replayCommander struct {
	configPath string
	debug      bool
	threadID   string
	model      string
	delay      time.Duration

	in     io.Reader
	out    io.Writer
	logOut io.Writer
}

const replayLongDesc string = `Segment a recorded model stream and print the resulting SSE frames.

Each input line is one fragment. Lines holding a JSON object
{"text": "...", "role": "..."} are used as-is; any other line is treated
as assistant text followed by a newline. Reads stdin when no file is given.`

const replayShortDesc string = "Segment a recorded stream and print SSE frames"

// NewReplayCmd 创建 replay 命令
func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.configPath, err = cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %w", err)
			}
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				cmder.in = f
			}
			cmder.out = cmd.OutOrStdout()
			cmder.logOut = cmd.ErrOrStderr()

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.threadID, "thread-id", "", "Thread ID for the start event (default: random UUID)")
	cmd.Flags().StringVar(&cmder.model, "model", "replay", "Model name for the start event")
	cmd.Flags().DurationVar(&cmder.delay, "delay", 0, "Pause between fragments to mimic live streaming")

	return cmd
}

func (c *replayCommander) run(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := otel.LoggingConfig{Level: cfg.Observability.LogLevel, Format: cfg.Observability.LogFormat}
	if c.debug {
		logCfg.Level = "debug"
	}
	logger, err := otel.NewLoggerFromConfig(logCfg, c.logOut)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	threadID := c.threadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	seg := stream.FromConfig(cfg.Stream,
		stream.WithLogger(logger),
		stream.WithSystemSignatures(cfg.Server.SystemPrompt),
	)

	start := stream.StartPayload{ThreadID: threadID, Model: c.model}
	return seg.Run(ctx, start, c.source(), sse.NewWriter(c.out))
}

// source 逐行读取输入，每行生成一个片段
func (c *replayCommander) source() stream.Source {
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	first := true

	return stream.SourceFunc(func(ctx context.Context) (stream.Fragment, error) {
		if !first && c.delay > 0 {
			select {
			case <-ctx.Done():
				return stream.Fragment{}, ctx.Err()
			case <-time.After(c.delay):
			}
		}
		first = false

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return stream.Fragment{}, err
			}
			return stream.Fragment{}, io.EOF
		}
		return parseLine(scanner.Text()), nil
	})
}

// recordedFragment 录制文件中的 JSON 行
type recordedFragment struct {
	Text string `json:"text"`
	Role string `json:"role"`
}

// parseLine 解析一行输入
func parseLine(line string) stream.Fragment {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var rec recordedFragment
		if err := json.Unmarshal([]byte(trimmed), &rec); err == nil {
			return stream.Fragment{Text: rec.Text, Role: message.ParseRole(rec.Role)}
		}
	}
	return stream.Fragment{Text: line + "\n", Role: message.RoleAssistant}
}
