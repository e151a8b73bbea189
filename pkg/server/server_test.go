package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/easyops/reactstream/pkg/core/config"
	"github.com/easyops/reactstream/pkg/core/errors"
	"github.com/easyops/reactstream/pkg/core/llm"
	"github.com/easyops/reactstream/pkg/core/message"
	"github.com/easyops/reactstream/pkg/otel"
	"github.com/easyops/reactstream/pkg/stream"
	"github.com/easyops/reactstream/pkg/transport/sse"
)

// mockProvider 按脚本输出片段的 LLM 提供商
type mockProvider struct {
	mu       sync.Mutex
	chunks   []string
	err      error
	requests []llm.Request
}

func (m *mockProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Content: strings.Join(m.chunks, "")}, nil
}

func (m *mockProvider) GenerateStream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, <-chan error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	chunkChan := make(chan llm.StreamChunk, len(m.chunks)+1)
	errChan := make(chan error, 1)
	for _, c := range m.chunks {
		chunkChan <- llm.StreamChunk{Content: c, Role: message.RoleAssistant}
	}
	if m.err != nil {
		errChan <- m.err
	} else {
		chunkChan <- llm.StreamChunk{Done: true, FinishReason: "stop"}
	}
	close(chunkChan)
	close(errChan)
	return chunkChan, errChan
}

func (m *mockProvider) Name() string  { return "mock" }
func (m *mockProvider) Model() string { return "mock-model" }
func (m *mockProvider) Close() error  { return nil }

func (m *mockProvider) lastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func postChat(t *testing.T, s *Server, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func readEvents(t *testing.T, body io.Reader) []stream.Event {
	t.Helper()
	frames, err := sse.NewReader(body).ReadAll()
	if err != nil {
		t.Fatalf("failed to read frames: %v", err)
	}
	events := make([]stream.Event, 0, len(frames))
	for _, f := range frames {
		ev, err := f.Decode()
		if err != nil {
			t.Fatalf("failed to decode frame %+v: %v", f, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestHealth(t *testing.T) {
	s := New(config.ServerConfig{}, &mockProvider{})

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if health.Status != "ok" || health.Model != "mock-model" {
		t.Fatalf("unexpected health response: %+v", health)
	}
}

func TestChatStream_RejectsEmptyMessage(t *testing.T) {
	s := New(config.ServerConfig{}, &mockProvider{})

	for _, body := range []string{`{"message":""}`, `{"message":"   "}`, `{}`} {
		resp := postChat(t, s, body)
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, resp.StatusCode)
		}
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if errResp.Error != errors.ErrEmptyMessage.Error() {
			t.Fatalf("expected %q, got %q", errors.ErrEmptyMessage.Error(), errResp.Error)
		}
	}
}

func TestChatStream_RejectsMalformedBody(t *testing.T) {
	metrics := otel.NewInMemoryMetrics()
	s := New(config.ServerConfig{}, &mockProvider{}, WithMetrics(metrics))

	resp := postChat(t, s, `{"message":`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	rejected := metrics.CounterValueWith(otel.MetricHTTPRequests,
		otel.NewAttr(otel.AttrHTTPRoute, routeChatStream),
		otel.NewAttr(otel.AttrHTTPStatus, fiber.StatusBadRequest),
	)
	if rejected != 1 {
		t.Fatalf("expected 1 rejected request, got %d", rejected)
	}
	if ok := metrics.CounterValueWith(otel.MetricHTTPRequests, otel.NewAttr(otel.AttrHTTPStatus, fiber.StatusOK)); ok != 0 {
		t.Fatalf("expected no successful requests, got %d", ok)
	}
}

func TestChatStream_StreamsSegmentedEvents(t *testing.T) {
	provider := &mockProvider{chunks: []string{
		"**Thought", ":** I should look this up.\n\n",
		"**Final Answer", ":** It is 5.",
	}}
	metrics := otel.NewInMemoryMetrics()
	s := New(config.ServerConfig{SystemPrompt: "You are a test agent."}, provider, WithMetrics(metrics))

	resp := postChat(t, s, `{"message":"what is it?","thread_id":"thread-42"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event stream content type, got %q", ct)
	}

	events := readEvents(t, resp.Body)
	if len(events) < 3 {
		t.Fatalf("expected at least 3 events, got %d", len(events))
	}

	start, ok := events[0].Data.(stream.StartPayload)
	if !ok || start.ThreadID != "thread-42" || start.Model != "mock-model" {
		t.Fatalf("unexpected start event: %+v", events[0])
	}
	if events[len(events)-1].Name != stream.EventDone {
		t.Fatalf("expected done last, got %s", events[len(events)-1].Name)
	}

	var sections []string
	var text strings.Builder
	for _, ev := range events {
		p, ok := ev.Content()
		if !ok {
			continue
		}
		if p.Content == "" {
			sections = append(sections, p.Section)
		}
		text.WriteString(p.Content)
	}
	if strings.Join(sections, ",") != "thought,final_answer" {
		t.Fatalf("unexpected sections %v", sections)
	}
	if text.String() != "**Thought:** I should look this up.\n\n**Final Answer:** It is 5." {
		t.Fatalf("unexpected text %q", text.String())
	}

	req := provider.lastRequest()
	if len(req.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != message.RoleSystem || req.Messages[0].Content != "You are a test agent." {
		t.Fatalf("unexpected system message: %+v", req.Messages[0])
	}
	if req.Messages[1].Role != message.RoleUser || req.Messages[1].Content != "what is it?" {
		t.Fatalf("unexpected user message: %+v", req.Messages[1])
	}

	if metrics.GetCounterValue(otel.MetricHTTPRequests) != 1 {
		t.Fatal("expected the request to be counted")
	}
}

func TestChatStream_GeneratesThreadID(t *testing.T) {
	s := New(config.ServerConfig{}, &mockProvider{chunks: []string{"Hello."}})

	events := readEvents(t, postChat(t, s, `{"message":"hi"}`).Body)
	start := events[0].Data.(stream.StartPayload)
	if len(start.ThreadID) != 36 {
		t.Fatalf("expected a generated uuid thread id, got %q", start.ThreadID)
	}
}

func TestChatStream_FiltersEchoedSystemPrompt(t *testing.T) {
	prompt := "You are a test agent with secret rules."
	provider := &mockProvider{chunks: []string{prompt, "Visible answer."}}
	s := New(config.ServerConfig{SystemPrompt: prompt}, provider)

	var text strings.Builder
	for _, ev := range readEvents(t, postChat(t, s, `{"message":"hi"}`).Body) {
		if p, ok := ev.Content(); ok {
			text.WriteString(p.Content)
		}
	}
	if text.String() != "Visible answer." {
		t.Fatalf("expected the echoed prompt to be filtered, got %q", text.String())
	}
}

func TestChatStream_UpstreamFailure(t *testing.T) {
	provider := &mockProvider{chunks: []string{"partial"}, err: errors.ErrProviderUnavailable}
	s := New(config.ServerConfig{}, provider)

	events := readEvents(t, postChat(t, s, `{"message":"hi"}`).Body)
	last := events[len(events)-1]
	if last.Name != stream.EventError {
		t.Fatalf("expected error event last, got %s", last.Name)
	}
	if last.Data.(stream.ErrorPayload).Error != errors.ErrProviderUnavailable.Error() {
		t.Fatalf("unexpected error payload: %+v", last.Data)
	}
	for _, ev := range events {
		if ev.Name == stream.EventDone {
			t.Fatal("expected no done event after an error")
		}
	}
}

// stallingProvider 输出一段内容后不再发送，也不关闭通道
type stallingProvider struct {
	mockProvider
	first string
}

func (p *stallingProvider) GenerateStream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, <-chan error) {
	chunkChan := make(chan llm.StreamChunk, 1)
	chunkChan <- llm.StreamChunk{Content: p.first, Role: message.RoleAssistant}
	return chunkChan, make(chan error)
}

func TestChatStream_RequestTimeout(t *testing.T) {
	provider := &stallingProvider{first: "**Thought:** hmm"}
	s := New(config.ServerConfig{RequestTimeout: 30 * time.Millisecond}, provider)

	events := readEvents(t, postChat(t, s, `{"message":"hi"}`).Body)
	last := events[len(events)-1]
	if last.Name != stream.EventError {
		t.Fatalf("expected error event last, got %s", last.Name)
	}
	if msg := last.Data.(stream.ErrorPayload).Error; !strings.HasPrefix(msg, errors.ErrTimeout.Error()) {
		t.Fatalf("unexpected error payload: %q", msg)
	}

	var text strings.Builder
	for _, ev := range events {
		if ev.Name == stream.EventDone {
			t.Fatal("expected no done event after a timeout")
		}
		if p, ok := ev.Content(); ok {
			text.WriteString(p.Content)
		}
	}
	if text.String() != "**Thought:** hmm" {
		t.Fatalf("expected buffered text before the error, got %q", text.String())
	}
}

func TestChatStream_CustomSegmenter(t *testing.T) {
	seg := stream.New(stream.WithContentChunkChars(5))
	s := New(config.ServerConfig{}, &mockProvider{chunks: []string{"abcdefgh", "ij"}}, WithSegmenter(seg))

	var contents []string
	for _, ev := range readEvents(t, postChat(t, s, `{"message":"hi"}`).Body) {
		if p, ok := ev.Content(); ok {
			contents = append(contents, p.Content)
		}
	}
	if strings.Join(contents, "|") != "abcdefgh|ij" {
		t.Fatalf("expected size-triggered flushes, got %v", contents)
	}
}
