package otel

import "go.opentelemetry.io/otel/attribute"

// 预定义的语义属性键
// 遵循 OpenTelemetry 语义约定
const (
	// Stream 相关属性
	AttrStreamThreadID = "stream.thread_id"
	AttrStreamSection  = "stream.section"
	AttrStreamEvent    = "stream.event"
	AttrStreamOutcome  = "stream.outcome"
	AttrStreamEvents   = "stream.event_count"

	// LLM 相关属性
	AttrLLMProvider         = "llm.provider"
	AttrLLMModel            = "llm.model"
	AttrLLMTemperature      = "llm.temperature"
	AttrLLMMaxTokens        = "llm.max_tokens"
	AttrLLMPromptTokens     = "llm.prompt_tokens"
	AttrLLMCompletionTokens = "llm.completion_tokens"
	AttrLLMTotalTokens      = "llm.total_tokens"

	// Message 相关属性
	AttrMessageRole   = "message.role"
	AttrMessageCount  = "message.count"
	AttrMessageTokens = "message.tokens"

	// HTTP 相关属性
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"

	// Error 相关属性
	AttrErrorType      = "error.type"
	AttrErrorMessage   = "error.message"
	AttrErrorRetryable = "error.retryable"
)

// StreamThreadID 创建会话 ID 属性
func StreamThreadID(id string) attribute.KeyValue {
	return attribute.String(AttrStreamThreadID, id)
}

// StreamSection 创建推理阶段属性
func StreamSection(section string) attribute.KeyValue {
	return attribute.String(AttrStreamSection, section)
}

// StreamOutcome 创建运行结果属性（done、error、cancelled）
func StreamOutcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrStreamOutcome, outcome)
}

// StreamEventCount 创建事件数量属性
func StreamEventCount(n int) attribute.KeyValue {
	return attribute.Int(AttrStreamEvents, n)
}

// LLMProvider 创建 LLM 提供商属性
func LLMProvider(provider string) attribute.KeyValue {
	return attribute.String(AttrLLMProvider, provider)
}

// LLMModel 创建 LLM 模型属性
func LLMModel(model string) attribute.KeyValue {
	return attribute.String(AttrLLMModel, model)
}

// LLMTokens 创建 LLM Token 使用属性
func LLMTokens(prompt, completion, total int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrLLMPromptTokens, prompt),
		attribute.Int(AttrLLMCompletionTokens, completion),
		attribute.Int(AttrLLMTotalTokens, total),
	}
}

// HTTPRoute 创建 HTTP 路由属性
func HTTPRoute(route string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, route)
}

// ErrorAttrs 创建错误属性
func ErrorAttrs(errType, message string, retryable bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errType),
		attribute.String(AttrErrorMessage, message),
		attribute.Bool(AttrErrorRetryable, retryable),
	}
}
