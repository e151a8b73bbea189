// Package reactstreamcmder 提供 reactstream 根命令
package reactstreamcmder

import (
	"github.com/spf13/cobra"

	replaycmder "github.com/easyops/reactstream/cmd/reactstream/replay"
	servecmder "github.com/easyops/reactstream/cmd/reactstream/serve"
)

const reactstreamLongDesc string = `ReactStream segments streamed ReAct model output into typed SSE events.

Run using:
  reactstream serve     Run the HTTP streaming server
  reactstream replay    Segment a recorded stream and print SSE frames`

const reactstreamShortDesc string = "ReactStream - ReAct stream segmenter"

// NewReactStreamCmd 创建根命令
func NewReactStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "reactstream",
		Short:        reactstreamShortDesc,
		Long:         reactstreamLongDesc,
		SilenceUsage: true,
	}

	// 全局参数
	cmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML or JSON config file")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())

	return cmd
}
