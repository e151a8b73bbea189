package llm

import (
	"fmt"

	"github.com/easyops/reactstream/pkg/core/config"
)

// FromConfig 按 llm 配置段创建客户端
//
// extra 排在配置派生的选项之后，可以覆盖配置值或挂载重试钩子。
func FromConfig(cfg config.LLMConfig, extra ...Option) (Provider, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []Option{
		WithName(string(cfg.Provider)),
		WithModel(cfg.Model),
		WithAPIKey(cfg.APIKey),
		WithBaseURL(cfg.BaseURL),
		WithTimeout(cfg.Timeout),
		WithMaxRetries(cfg.MaxRetries),
		WithRetryDelay(cfg.RetryDelay),
		WithTemperature(cfg.Temperature),
		WithMaxTokens(cfg.MaxTokens),
	}
	if !cfg.Provider.RequiresAPIKey() {
		opts = append(opts, WithoutAPIKey())
	}

	return NewOpenAI(append(opts, extra...)...)
}

// MustFromConfig 失败时 panic，示例程序使用
func MustFromConfig(cfg config.LLMConfig, extra ...Option) Provider {
	provider, err := FromConfig(cfg, extra...)
	if err != nil {
		panic(fmt.Sprintf("failed to create provider from config: %v", err))
	}
	return provider
}
