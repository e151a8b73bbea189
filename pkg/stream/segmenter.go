// Package stream 把大模型的增量输出切分为带 ReAct 阶段标签的线上事件
//
// 分段器逐段拉取上游文本，规范化阶段关键字，识别 Thought / Action /
// Observation / Final Answer 阶段，并保证 Markdown 表格不会在行中间被拆开。
package stream

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/easyops/reactstream/pkg/core/errors"
	"github.com/easyops/reactstream/pkg/otel"
)

// enhanceStep 流式增强函数
var enhanceStep = enhanceTail

// headerSpan 阶段标题的最大字节长度（含 ** 与冒号），检测窗口至少回看这么多
const headerSpan = 24

// RunState 单次运行的状态
type RunState int

const (
	// StateStreaming 正在处理
	StateStreaming RunState = iota
	// StateDone 正常结束
	StateDone
	// StateError 上游失败
	StateError
	// StateCancelled 客户端断开或被取消
	StateCancelled
)

// String 返回状态名称
func (s RunState) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Segmenter 流式响应分段器
//
// Segmenter 只保存配置，可在多个并发请求间共享；每次 Run 的状态都是局部的。
type Segmenter struct {
	opts     *Options
	detector *SectionDetector
	gate     ChunkGate
	filter   systemFilter
}

// New 创建分段器
func New(opts ...Option) *Segmenter {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Segmenter{
		opts:     options,
		detector: NewSectionDetector(),
		gate:     NewChunkGate(options.HeaderTailChars, options.ContentChunkChars, options.MinRowChars),
		filter:   newSystemFilter(options.SystemSignatures),
	}
}

// Run 从 src 拉取片段并把事件写入 sink，直到流结束、失败或客户端断开
//
// 正常结束与断开都返回 nil；上游失败时先发送 error 事件，再返回该错误。
// ctx 超时不算断开：先发送已缓冲的内容，再以包装 errors.ErrTimeout 的 error 事件结束。
func (s *Segmenter) Run(ctx context.Context, start StartPayload, src Source, sink Sink) error {
	if src == nil {
		return ErrNilSource
	}
	if sink == nil {
		return ErrNilSink
	}
	return s.newRun(start, sink).run(ctx, src)
}

// Stream 以通道形式返回事件，通道在终止事件之后关闭
//
// 通道容量有限，消费者读取变慢时分段器随之暂停拉取上游。
func (s *Segmenter) Stream(ctx context.Context, start StartPayload, src Source) <-chan Event {
	events := make(chan Event, s.opts.EventBuffer)

	go func() {
		defer close(events)
		if err := s.Run(ctx, start, src, channelSink{ch: events}); err != nil {
			s.opts.Logger.WithContext(ctx).Debug("segmenter run failed", "error", err)
		}
	}()

	return events
}

// run 单次请求的分段状态
type run struct {
	s      *Segmenter
	sink   Sink
	meta   StartPayload
	logger otel.Logger

	// buf 已判定（已增强）的全部文本，只追加
	buf strings.Builder
	// pending 增强器尚未判定的原始文本
	pending string
	// cursor 已发送文本的结束位置
	cursor int
	// scanned 表格扫描已处理到的位置
	scanned int

	tracker *SectionTracker
	section Section
	table   *TableTracker
	state   RunState
	events  int

	// onAdvance 游标推进时的观察钩子
	onAdvance func(from, to int)
}

func (s *Segmenter) newRun(meta StartPayload, sink Sink) *run {
	return &run{
		s:       s,
		sink:    sink,
		meta:    meta,
		logger:  s.opts.Logger,
		tracker: NewSectionTracker(),
		section: SectionNone,
		table:   NewTableTracker(s.opts.ProseStarters, s.opts.MinRowChars, s.opts.TableChunkChars),
		state:   StateStreaming,
	}
}

func (r *run) run(ctx context.Context, src Source) (err error) {
	metrics := r.s.opts.Metrics
	ctx, span := r.s.opts.Tracer.Start(ctx, "stream.run",
		otel.WithAttributes(otel.StreamThreadID(r.meta.ThreadID), otel.LLMModel(r.meta.Model)),
	)
	r.logger = r.logger.WithContext(ctx).WithFields(map[string]any{
		"thread_id": r.meta.ThreadID,
		"model":     r.meta.Model,
	})

	started := time.Now()
	metrics.Counter(otel.MetricStreamRuns).Add(ctx, 1)
	metrics.Gauge(otel.MetricStreamActive).Set(ctx, 1)
	defer func() {
		metrics.Gauge(otel.MetricStreamActive).Set(ctx, 0)
		metrics.Histogram(otel.MetricStreamRunDuration).Record(ctx, float64(time.Since(started).Milliseconds()),
			otel.NewAttr(otel.AttrStreamOutcome, r.state.String()))
		span.SetAttributes(otel.StreamOutcome(r.state.String()), otel.StreamEventCount(r.events))
		otel.EndSpan(span, err)
	}()

	r.logger.Debug("segmenter run started")

	if emitErr := r.emit(ctx, NewStartEvent(r.meta.ThreadID, r.meta.Model)); emitErr != nil {
		return r.abort(ctx, emitErr)
	}

	for {
		frag, nextErr := src.Next(ctx)
		if stderrors.Is(nextErr, io.EOF) {
			return r.finish(ctx)
		}
		if nextErr != nil {
			switch {
			case errors.IsDisconnect(nextErr):
				return r.disconnect(ctx, nextErr)
			case stderrors.Is(nextErr, context.DeadlineExceeded), stderrors.Is(ctx.Err(), context.DeadlineExceeded):
				return r.timeout(ctx, nextErr)
			case ctx.Err() != nil:
				return r.disconnect(ctx, nextErr)
			default:
				return r.fail(ctx, nextErr)
			}
		}

		if frag.Text == "" {
			continue
		}
		if r.s.filter.drop(frag) {
			metrics.Counter(otel.MetricStreamFiltered).Add(ctx, 1)
			r.logger.Debug("system fragment filtered", "role", string(frag.Role), "length", len(frag.Text))
			continue
		}

		if pushErr := r.push(ctx, frag.Text, false); pushErr != nil {
			return r.abort(ctx, pushErr)
		}
	}
}

// push 追加一段文本并做出全部发送决定
func (r *run) push(ctx context.Context, text string, final bool) error {
	from := r.buf.Len()
	r.enhance(text, final)
	end := r.buf.Len()

	if end > from {
		content := r.buf.String()
		// 新增文本中的每个标题各自切换一次，最后一步覆盖到 end
		for _, limit := range append(r.headerLimits(content, from, end), end) {
			if err := r.step(ctx, content, from, limit); err != nil {
				return err
			}
		}
	}

	if final {
		return r.flushRest(ctx)
	}
	if !r.table.Active() && r.s.gate.Ready(r.unsent()) {
		return r.flushContent(ctx, r.holdPartialHeader(end))
	}
	return nil
}

// step 检测 content[:limit] 中生效的阶段，切换后处理到 limit 为止的表格
func (r *run) step(ctx context.Context, content string, from, limit int) error {
	d := r.detect(content, from, limit)
	tr := r.tracker.Advance(d, content[from:limit])
	if tr.Continuation {
		r.logger.Debug("final answer continuation kept", "detected", d.Section.String())
	}
	if tr.Changed {
		split := clamp(tr.Offset, r.cursor, limit)
		if err := r.scanTables(ctx, split); err != nil {
			return err
		}
		if err := r.switchSection(ctx, tr, split); err != nil {
			return err
		}
	}
	return r.scanTables(ctx, limit)
}

// headerLimits 返回结束于 (from, end) 之间的完整标题的结束位置，递增
func (r *run) headerLimits(content string, from, end int) []int {
	lo := max(from-headerSpan, 0)
	var limits []int
	last := from
	for _, e := range r.s.detector.HeaderEnds(content[lo:end]) {
		if e += lo; e > last && e < end {
			limits = append(limits, e)
			last = e
		}
	}
	return limits
}

// holdPartialHeader 待发送文本以不完整的阶段标题结尾时，返回该标题的起点
//
// 标题要等后续片段补全后才能判定归属，先发送它之前的内容。
func (r *run) holdPartialHeader(end int) int {
	lo := max(end-headerSpan, r.cursor)
	lower := asciiLower(r.buf.String()[lo:end])
	for i := 0; i < len(lower); i++ {
		if lower[i] == '*' && isHeaderPrefix(lower[i:]) {
			return lo + i
		}
	}
	return end
}

// enhance 增强 pending+text 并把已判定部分追加到 buf；增强失败时退回原文
func (r *run) enhance(text string, final bool) {
	raw := r.pending + text
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("pattern enhancement failed, using raw text", "panic", fmt.Sprint(p))
			r.buf.WriteString(raw)
			r.pending = ""
		}
	}()

	decided, pending := enhanceStep(r.tail(), raw, final)
	r.buf.WriteString(decided)
	r.pending = pending
}

// tail 返回 buf 末尾用于增强上下文的几个字节
func (r *run) tail() string {
	content := r.buf.String()
	if len(content) > 4 {
		return content[len(content)-4:]
	}
	return content
}

// detect 在 buf 尾部窗口中检测阶段，窗口至少覆盖本次新增文本之前一个标题长度
func (r *run) detect(content string, from, end int) Detection {
	start := end - r.s.opts.DetectionWindow
	if alt := from - headerSpan; alt < start {
		start = alt
	}
	if start < 0 {
		start = 0
	}

	d := r.s.detector.Detect(content[start:end])
	if d.Found() {
		d.Offset += start
	}
	return d
}

// switchSection 发送旧阶段剩余内容与新阶段的切换通知
//
// 标题之前的非空白内容归旧阶段；纯空白内容留给新阶段。
func (r *run) switchSection(ctx context.Context, tr Transition, split int) error {
	content := r.buf.String()
	prior := content[r.cursor:split]

	if r.table.Active() {
		r.table.Close()
		if prior != "" {
			if err := r.emitTable(ctx, prior, split); err != nil {
				return err
			}
		}
	} else if strings.TrimSpace(prior) != "" {
		if err := r.emitContent(ctx, prior, split); err != nil {
			return err
		}
	}
	if r.scanned < split {
		r.scanned = split
	}

	r.logger.Debug("section changed", "from", tr.From.String(), "to", tr.To.String(), "rule", tr.Rule)
	r.s.opts.Metrics.Counter(otel.MetricStreamSectionChanges).Add(ctx, 1,
		otel.NewAttr(otel.AttrStreamSection, tr.To.String()))

	r.section = tr.To
	return r.emit(ctx, NewSectionEvent(tr.To))
}

// scanTables 处理 buf[scanned:limit] 中的表格起止与表格内容发送
func (r *run) scanTables(ctx context.Context, limit int) error {
	content := r.buf.String()

	for r.scanned < limit {
		from := r.scanned

		if !r.table.Active() {
			start, ok := r.table.Open(content, from, limit, r.cursor)
			if !ok {
				r.scanned = limit
				return nil
			}
			if prior := content[r.cursor:start]; strings.TrimSpace(prior) != "" {
				if err := r.emitContent(ctx, prior, start); err != nil {
					return err
				}
			}
			continue
		}

		if end, ok := r.table.End(content, from, limit); ok {
			r.table.Close()
			r.scanned = end
			if end > r.cursor {
				if err := r.emitTable(ctx, content[r.cursor:end], end); err != nil {
					return err
				}
			}
			continue
		}

		r.scanned = limit
		if n := r.table.FlushLen(content[r.cursor:limit]); n > 0 {
			return r.emitTable(ctx, content[r.cursor:r.cursor+n], r.cursor+n)
		}
	}
	return nil
}

// flushContent 发送游标到 end 之间的普通内容
func (r *run) flushContent(ctx context.Context, end int) error {
	if end <= r.cursor {
		return nil
	}
	return r.emitContent(ctx, r.buf.String()[r.cursor:end], end)
}

// flushRest 流结束时发送全部剩余文本
func (r *run) flushRest(ctx context.Context) error {
	rest := r.unsent()
	end := r.buf.Len()
	if rest == "" {
		return nil
	}
	if r.table.Active() {
		r.table.Close()
		return r.emitTable(ctx, rest, end)
	}
	return r.emitContent(ctx, rest, end)
}

func (r *run) unsent() string {
	return r.buf.String()[r.cursor:]
}

func (r *run) emitContent(ctx context.Context, text string, to int) error {
	if err := r.emit(ctx, NewContentEvent(text, r.section)); err != nil {
		return err
	}
	r.advance(ctx, text, to)
	return nil
}

func (r *run) emitTable(ctx context.Context, text string, to int) error {
	if err := r.emit(ctx, NewTableEvent(text, r.section)); err != nil {
		return err
	}
	r.s.opts.Metrics.Counter(otel.MetricStreamTableFlushes).Add(ctx, 1)
	r.advance(ctx, text, to)
	return nil
}

// advance 推进已发送游标，游标只增不减
func (r *run) advance(ctx context.Context, text string, to int) {
	if to <= r.cursor {
		return
	}
	if r.onAdvance != nil {
		r.onAdvance(r.cursor, to)
	}
	r.cursor = to
	if n := r.s.opts.TokenCounter.Count(text); n > 0 {
		r.s.opts.Metrics.Counter(otel.MetricStreamTokensEmitted).Add(ctx, int64(n))
	}
}

// emit 写入一条事件，写入失败视为客户端断开
func (r *run) emit(ctx context.Context, ev Event) error {
	if err := r.sink.Emit(ctx, ev); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrClientDisconnected, err)
	}
	r.events++
	r.s.opts.Metrics.Counter(otel.MetricStreamEvents).Add(ctx, 1, otel.NewAttr(otel.AttrStreamEvent, string(ev.Name)))
	return nil
}

// finish 上游正常结束：判定剩余文本，发送全部内容后发送 done
func (r *run) finish(ctx context.Context) error {
	if err := r.push(ctx, "", true); err != nil {
		return r.abort(ctx, err)
	}
	if err := r.emit(ctx, NewDoneEvent("")); err != nil {
		return r.abort(ctx, err)
	}
	r.state = StateDone
	r.logger.Debug("segmenter run completed", "events", r.events)
	return nil
}

// disconnect 上游报告断开或取消：不再发送内容，尽力发送带附注的 done
func (r *run) disconnect(ctx context.Context, cause error) error {
	r.state = StateCancelled
	r.s.opts.Metrics.Counter(otel.MetricStreamDisconnects).Add(ctx, 1)
	r.logger.Info("client disconnected", "cause", cause.Error(), "events", r.events)

	if err := r.emit(ctx, NewDoneEvent(NoteClientDisconnected)); err != nil {
		r.logger.Debug("done event not delivered", "error", err)
	}
	return nil
}

// timeout 超过请求时限：客户端仍在读取，发送剩余内容后以 error 事件结束
func (r *run) timeout(ctx context.Context, cause error) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.push(ctx, "", true); err != nil {
		return r.abort(ctx, err)
	}
	return r.fail(ctx, fmt.Errorf("%w: %w", errors.ErrTimeout, cause))
}

// abort 事件写入失败：客户端已不可写，静默结束
func (r *run) abort(ctx context.Context, cause error) error {
	r.state = StateCancelled
	r.s.opts.Metrics.Counter(otel.MetricStreamDisconnects).Add(ctx, 1)
	r.logger.Info("client stopped reading", "cause", cause.Error(), "events", r.events)
	return nil
}

// fail 上游意外失败：发送一次 error 事件后结束
func (r *run) fail(ctx context.Context, cause error) error {
	r.state = StateError
	r.s.opts.Metrics.Counter(otel.MetricStreamErrors).Add(ctx, 1)
	r.logger.Error("token source failed", "error", cause.Error(), "events", r.events)

	if err := r.emit(ctx, NewErrorEvent(cause)); err != nil {
		r.logger.Debug("error event not delivered", "error", err)
	}
	return cause
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
