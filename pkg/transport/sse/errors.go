package sse

import "errors"

var (
	// ErrUnknownEvent 帧的事件名不是已知的分段事件
	ErrUnknownEvent = errors.New("unknown event")
	// ErrWriterClosed 写入端已关闭
	ErrWriterClosed = errors.New("sse writer closed")
)
