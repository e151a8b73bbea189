package otel

// 预定义的指标名称
// 遵循 OpenTelemetry 语义约定
const (
	// Stream 指标
	MetricStreamRuns           = "stream.runs"               // 计数器: 分段运行次数
	MetricStreamRunDuration    = "stream.run.duration"       // 直方图: 单次运行时间(ms)
	MetricStreamActive         = "stream.active"             // 仪表: 进行中的运行数
	MetricStreamEvents         = "stream.events"             // 计数器: 发送的事件数
	MetricStreamSectionChanges = "stream.section_changes"    // 计数器: 阶段切换次数
	MetricStreamTableFlushes   = "stream.table_flushes"      // 计数器: 表格事件数
	MetricStreamFiltered       = "stream.fragments.filtered" // 计数器: 被过滤的系统片段数
	MetricStreamDisconnects    = "stream.disconnects"        // 计数器: 客户端断开次数
	MetricStreamErrors         = "stream.errors"             // 计数器: 上游失败次数
	MetricStreamTokensEmitted  = "stream.tokens.emitted"     // 计数器: 发送内容的 Token 数

	// LLM 指标
	MetricLLMRequests         = "llm.requests"          // 计数器: LLM 请求次数
	MetricLLMRequestDuration  = "llm.request.duration"  // 直方图: LLM 请求时间(ms)
	MetricLLMTokensPrompt     = "llm.tokens.prompt"     // 计数器: Prompt Token 总数
	MetricLLMTokensCompletion = "llm.tokens.completion" // 计数器: Completion Token 总数
	MetricLLMTokensTotal      = "llm.tokens.total"      // 计数器: 总 Token 数
	MetricLLMErrors           = "llm.errors"            // 计数器: LLM 错误次数
	MetricLLMRetries          = "llm.retries"           // 计数器: LLM 重试次数

	// HTTP 指标
	MetricHTTPRequests = "http.server.requests" // 计数器: 请求次数
)

// MetricUnit 指标单位
type MetricUnit string

const (
	UnitNone         MetricUnit = ""
	UnitMilliseconds MetricUnit = "ms"
	UnitSeconds      MetricUnit = "s"
	UnitBytes        MetricUnit = "By"
	UnitCount        MetricUnit = "1"
)

// MetricDescription 指标描述
type MetricDescription struct {
	Name        string
	Description string
	Unit        MetricUnit
	Type        string // counter, histogram, gauge
}

// PredefinedMetrics 预定义指标列表
var PredefinedMetrics = []MetricDescription{
	{MetricStreamRuns, "Number of segmenter runs", UnitCount, "counter"},
	{MetricStreamRunDuration, "Duration of segmenter runs", UnitMilliseconds, "histogram"},
	{MetricStreamActive, "Number of runs in progress", UnitCount, "gauge"},
	{MetricStreamEvents, "Number of wire events emitted", UnitCount, "counter"},
	{MetricStreamSectionChanges, "Number of reasoning phase changes", UnitCount, "counter"},
	{MetricStreamTableFlushes, "Number of table events emitted", UnitCount, "counter"},
	{MetricStreamFiltered, "Number of system fragments dropped", UnitCount, "counter"},
	{MetricStreamDisconnects, "Number of client disconnects", UnitCount, "counter"},
	{MetricStreamErrors, "Number of upstream failures", UnitCount, "counter"},
	{MetricStreamTokensEmitted, "Number of tokens emitted to clients", UnitCount, "counter"},

	{MetricLLMRequests, "Number of LLM requests", UnitCount, "counter"},
	{MetricLLMRequestDuration, "Duration of LLM requests", UnitMilliseconds, "histogram"},
	{MetricLLMTokensPrompt, "Number of prompt tokens", UnitCount, "counter"},
	{MetricLLMTokensCompletion, "Number of completion tokens", UnitCount, "counter"},
	{MetricLLMTokensTotal, "Total number of tokens", UnitCount, "counter"},
	{MetricLLMErrors, "Number of LLM errors", UnitCount, "counter"},
	{MetricLLMRetries, "Number of LLM retries", UnitCount, "counter"},

	{MetricHTTPRequests, "Number of HTTP requests", UnitCount, "counter"},
}

// LookupMetric 按名称查找预定义指标描述
func LookupMetric(name string) (MetricDescription, bool) {
	for _, m := range PredefinedMetrics {
		if m.Name == name {
			return m, true
		}
	}
	return MetricDescription{}, false
}
