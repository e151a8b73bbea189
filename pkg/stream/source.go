package stream

import (
	"context"
	"io"
	"strings"

	"github.com/easyops/reactstream/pkg/core/llm"
	"github.com/easyops/reactstream/pkg/core/message"
)

// DefaultSystemSignatures 系统提示的特征串，包含它们的片段不会发送给客户端
var DefaultSystemSignatures = []string{
	"**Important: Today is",
	"**CRITICAL: You MUST always follow",
	"**Available Tools:**",
	"**Important Guidelines:**",
}

// Fragment 上游产生的一段增量文本
type Fragment struct {
	Text string
	Role message.Role
}

// Source 增量文本来源
//
// Next 在正常结束时返回 io.EOF；客户端断开或取消时返回可被
// errors.IsDisconnect 识别的错误。
type Source interface {
	Next(ctx context.Context) (Fragment, error)
}

// SourceFunc 函数形式的 Source
type SourceFunc func(ctx context.Context) (Fragment, error)

// Next 调用函数本身
func (f SourceFunc) Next(ctx context.Context) (Fragment, error) {
	return f(ctx)
}

// SliceSource 按顺序返回固定片段的 Source
type SliceSource struct {
	fragments []Fragment
	next      int
}

// NewSliceSource 从片段列表创建 Source
func NewSliceSource(fragments ...Fragment) *SliceSource {
	return &SliceSource{fragments: fragments}
}

// NewTextSource 从纯文本列表创建 Source，角色均为 assistant
func NewTextSource(texts ...string) *SliceSource {
	fragments := make([]Fragment, len(texts))
	for i, text := range texts {
		fragments[i] = Fragment{Text: text, Role: message.RoleAssistant}
	}
	return NewSliceSource(fragments...)
}

// Next 返回下一个片段
func (s *SliceSource) Next(ctx context.Context) (Fragment, error) {
	if err := ctx.Err(); err != nil {
		return Fragment{}, err
	}
	if s.next >= len(s.fragments) {
		return Fragment{}, io.EOF
	}
	f := s.fragments[s.next]
	s.next++
	return f, nil
}

// ProviderSource 把 llm.Provider 的流式输出适配为 Source
type ProviderSource struct {
	chunks <-chan llm.StreamChunk
	errs   <-chan error
}

// NewProviderSource 包装 GenerateStream 返回的两个通道
func NewProviderSource(chunks <-chan llm.StreamChunk, errs <-chan error) *ProviderSource {
	return &ProviderSource{chunks: chunks, errs: errs}
}

// Next 返回下一段非空内容
func (s *ProviderSource) Next(ctx context.Context) (Fragment, error) {
	for {
		select {
		case <-ctx.Done():
			return Fragment{}, ctx.Err()
		case chunk, ok := <-s.chunks:
			if !ok {
				return Fragment{}, s.finish(ctx)
			}
			if chunk.Content == "" {
				continue
			}
			return Fragment{Text: chunk.Content, Role: chunk.Role}, nil
		}
	}
}

// finish 通道关闭后读取上游错误，没有错误时返回 io.EOF
func (s *ProviderSource) finish(ctx context.Context) error {
	if s.errs == nil {
		return io.EOF
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-s.errs:
		if ok && err != nil {
			return err
		}
		return io.EOF
	}
}

// systemFilter 过滤系统级片段
type systemFilter struct {
	signatures []string
}

func newSystemFilter(signatures []string) systemFilter {
	return systemFilter{signatures: signatures}
}

// drop 片段是否属于系统角色或包含系统提示特征
func (f systemFilter) drop(frag Fragment) bool {
	if frag.Role.IsSystem() {
		return true
	}
	for _, sig := range f.signatures {
		if sig != "" && strings.Contains(frag.Text, sig) {
			return true
		}
	}
	return false
}

// compile-time interface check
var _ Source = (*SliceSource)(nil)
var _ Source = (*ProviderSource)(nil)
var _ Source = SourceFunc(nil)
