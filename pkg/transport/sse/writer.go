package sse

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/easyops/reactstream/pkg/stream"
)

// Encode 把事件编码为一个完整的 SSE 帧
func Encode(ev stream.Event) ([]byte, error) {
	data, err := ev.MarshalData()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(ev.Name) + len(data) + 16)
	buf.WriteString("event: ")
	buf.WriteString(string(ev.Name))
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// flusher 写入后需要显式刷新的目标
type flusher interface {
	Flush() error
}

// Writer 把事件逐帧写入 io.Writer 的 Sink
//
// 每帧写完后立即刷新，目标支持 Flush() error 或 http.Flusher 时生效。
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewWriter 创建 SSE 写入端
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Emit 编码并写入一帧，写入失败说明客户端已不可写
func (w *Writer) Emit(ctx context.Context, ev stream.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	frame, err := Encode(ev)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	if _, err := w.w.Write(frame); err != nil {
		return err
	}
	return w.flush()
}

func (w *Writer) flush() error {
	switch f := w.w.(type) {
	case flusher:
		return f.Flush()
	case http.Flusher:
		f.Flush()
	}
	return nil
}

// Close 关闭写入端，之后的 Emit 返回 ErrWriterClosed
//
// 底层目标实现 io.Closer 时一并关闭。
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// compile-time interface check
var _ stream.Sink = (*Writer)(nil)
