package stream

import (
	"context"
	"sync"
)

// Sink 事件接收方
//
// Emit 返回错误表示客户端已不可写，分段器会按断开处理并停止发送。
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc 函数形式的 Sink
type SinkFunc func(ctx context.Context, ev Event) error

// Emit 调用函数本身
func (f SinkFunc) Emit(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Recorder 在内存中记录全部事件的 Sink
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder 创建事件记录器
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit 记录事件
func (r *Recorder) Emit(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events 返回已记录事件的副本
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// channelSink 把事件写入有界通道
type channelSink struct {
	ch chan<- Event
}

// Emit 写入通道，消费者离开时返回上下文错误
//
// 通道有空位时总是写入成功，即使 ctx 已取消。
func (s channelSink) Emit(ctx context.Context, ev Event) error {
	select {
	case s.ch <- ev:
		return nil
	default:
	}
	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// compile-time interface check
var _ Sink = (*Recorder)(nil)
var _ Sink = SinkFunc(nil)
var _ Sink = channelSink{}
