package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/easyops/reactstream/pkg/core/config"
	coreerrors "github.com/easyops/reactstream/pkg/core/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.Provider != config.ProviderOpenAI {
		t.Fatalf("expected provider openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4.1" {
		t.Fatalf("expected default model gpt-4.1, got %s", cfg.LLM.Model)
	}
	if cfg.Stream.HeaderTailChars != 10 {
		t.Fatalf("expected HeaderTailChars 10, got %d", cfg.Stream.HeaderTailChars)
	}
	if cfg.Stream.ContentChunkChars != 100 {
		t.Fatalf("expected ContentChunkChars 100, got %d", cfg.Stream.ContentChunkChars)
	}
	if cfg.Stream.TableChunkChars != 200 {
		t.Fatalf("expected TableChunkChars 200, got %d", cfg.Stream.TableChunkChars)
	}
	if cfg.Stream.EventBuffer != 10 {
		t.Fatalf("expected EventBuffer 10, got %d", cfg.Stream.EventBuffer)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Fatalf("expected listen addr :8080, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Server.SystemPrompt != config.DefaultSystemPrompt {
		t.Fatal("expected default system prompt")
	}
	if cfg.Observability.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.Observability.SampleRate)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reactstream.yaml")
	content := `
llm:
  provider: deepseek
  api_key: sk-test
  timeout: 45s
stream:
  content_chunk_chars: 64
  system_signatures:
    - "**Internal Notes:**"
server:
  listen_addr: ":9090"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.Provider != config.ProviderDeepSeek {
		t.Fatalf("expected provider deepseek, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "deepseek-chat" {
		t.Fatalf("expected model deepseek-chat, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %s", cfg.LLM.Timeout)
	}
	if cfg.Stream.ContentChunkChars != 64 {
		t.Fatalf("expected ContentChunkChars 64, got %d", cfg.Stream.ContentChunkChars)
	}
	if len(cfg.Stream.SystemSignatures) != 1 || cfg.Stream.SystemSignatures[0] != "**Internal Notes:**" {
		t.Fatalf("unexpected system signatures: %v", cfg.Stream.SystemSignatures)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Fatalf("expected listen addr :9090, got %s", cfg.Server.ListenAddr)
	}
}

func TestLoad_JSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reactstream.json")
	content := `{"llm": {"provider": "ollama"}, "stream": {"table_chunk_chars": 300}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Provider != config.ProviderOllama {
		t.Fatalf("expected provider ollama, got %s", cfg.LLM.Provider)
	}
	if cfg.Stream.TableChunkChars != 300 {
		t.Fatalf("expected TableChunkChars 300, got %d", cfg.Stream.TableChunkChars)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr, got %s", cfg.Server.ListenAddr)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactstream.yml")
	if err := os.WriteFile(path, []byte("llm: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := config.Load(path); err == nil {
		t.Fatal("expected a parse error for malformed YAML")
	}
}

func TestLoader_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactstream.toml")
	if err := os.WriteFile(path, []byte("a = 1"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	err := config.NewLoader().LoadFile(path)
	if !errors.Is(err, config.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reactstream.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  model: from-file\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("REACTSTREAM_LLM_MODEL", "from-env")
	t.Setenv("REACTSTREAM_LLM_API_KEY", "sk-env")
	t.Setenv("REACTSTREAM_STREAM_HEADER_TAIL_CHARS", "20")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Model != "from-env" {
		t.Fatalf("expected model from-env, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Fatalf("expected api key sk-env, got %s", cfg.LLM.APIKey)
	}
	if cfg.Stream.HeaderTailChars != 20 {
		t.Fatalf("expected HeaderTailChars 20, got %d", cfg.Stream.HeaderTailChars)
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("REACTSTREAM_LLM_PROVIDER", "unknown")

	_, err := config.Load("")
	if !errors.Is(err, config.ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}
	if !coreerrors.IsFatal(err) {
		t.Fatalf("expected validation error to be fatal, got %v", err)
	}
}

func TestObservabilityConfig_WithDefaults(t *testing.T) {
	cfg := config.ObservabilityConfig{TracerEndpoint: "collector:4317"}.WithDefaults()
	if cfg.MetricsEndpoint != "collector:4317" {
		t.Fatalf("expected metrics endpoint to follow tracer endpoint, got %s", cfg.MetricsEndpoint)
	}
	if cfg.Exporter != "otlp-grpc" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLLMConfig_ValidateCapsValues(t *testing.T) {
	cfg := config.LLMConfig{
		Provider:   config.ProviderOpenAI,
		Model:      "gpt-4.1",
		Timeout:    time.Hour,
		MaxRetries: 50,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timeout != 5*time.Minute {
		t.Fatalf("expected timeout capped at 5m, got %s", cfg.Timeout)
	}
	if cfg.MaxRetries != 10 {
		t.Fatalf("expected retries capped at 10, got %d", cfg.MaxRetries)
	}
}

func TestProvider_Defaults(t *testing.T) {
	tests := []struct {
		provider config.Provider
		baseURL  string
		model    string
		needsKey bool
	}{
		{config.ProviderOpenAI, "", "gpt-4.1", true},
		{config.ProviderDeepSeek, "https://api.deepseek.com/v1", "deepseek-chat", true},
		{config.ProviderQwen, "https://dashscope.aliyuncs.com/compatible-mode/v1", "qwen-turbo", true},
		{config.ProviderOllama, "http://localhost:11434/v1", "llama3.2", false},
		{config.ProviderVLLM, "http://localhost:8000/v1", "default", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			if got := tt.provider.DefaultBaseURL(); got != tt.baseURL {
				t.Fatalf("expected base url %q, got %q", tt.baseURL, got)
			}
			if got := tt.provider.DefaultModel(); got != tt.model {
				t.Fatalf("expected model %q, got %q", tt.model, got)
			}
			if got := tt.provider.RequiresAPIKey(); got != tt.needsKey {
				t.Fatalf("expected RequiresAPIKey %v, got %v", tt.needsKey, got)
			}
		})
	}
}

func TestLLMConfig_WithDefaultsKeepsBaseURL(t *testing.T) {
	cfg := config.LLMConfig{Provider: config.ProviderOllama, BaseURL: "http://gpu:11434/v1"}.WithDefaults()
	if cfg.BaseURL != "http://gpu:11434/v1" {
		t.Fatalf("expected configured base url to win, got %q", cfg.BaseURL)
	}
	if cfg.Model != "llama3.2" {
		t.Fatalf("expected default ollama model, got %q", cfg.Model)
	}
}

func TestStreamConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StreamConfig
		wantErr error
	}{
		{"defaults", config.StreamConfig{}.WithDefaults(), nil},
		{"negative header tail", config.StreamConfig{HeaderTailChars: -1, ContentChunkChars: 1, TableChunkChars: 1, DetectionWindow: 1}, config.ErrInvalidThreshold},
		{"zero window", config.StreamConfig{ContentChunkChars: 1, TableChunkChars: 1}, config.ErrInvalidThreshold},
		{"negative buffer", config.StreamConfig{ContentChunkChars: 1, TableChunkChars: 1, DetectionWindow: 1, EventBuffer: -1}, config.ErrInvalidBufferSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestServerConfig_Validate(t *testing.T) {
	cfg := config.ServerConfig{}
	if !errors.Is(cfg.Validate(), config.ErrListenAddrRequired) {
		t.Fatal("expected ErrListenAddrRequired for empty listen addr")
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RequestTimeout != 5*time.Minute {
		t.Fatalf("expected request timeout 5m, got %s", cfg.RequestTimeout)
	}
}
