package stream

import "errors"

// 分段器相关错误
var (
	// ErrNilSource 未提供文本来源
	ErrNilSource = errors.New("stream: source is nil")
	// ErrNilSink 未提供事件接收方
	ErrNilSink = errors.New("stream: sink is nil")
)
