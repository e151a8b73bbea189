// Package sse 实现分段事件的 Server-Sent Events 编解码
//
// 写入端把 stream.Event 编码为 "event: <name>\ndata: <json>\n\n" 帧；
// 读取端按空行切分帧，供客户端与测试还原事件。
package sse

import (
	"encoding/json"
	"fmt"

	"github.com/easyops/reactstream/pkg/stream"
)

// ContentType SSE 响应的内容类型
const ContentType = "text/event-stream"

// Frame 一个已解析的 SSE 帧
type Frame struct {
	// Event 帧的事件名，为空表示默认的 message
	Event string
	// Data 全部 data 行以 "\n" 连接后的内容
	Data string
	// ID 帧的 id 字段
	ID string
}

// Decode 把帧还原为分段事件
func (f *Frame) Decode() (stream.Event, error) {
	name := stream.EventName(f.Event)
	data := []byte(f.Data)

	var (
		payload any
		err     error
	)
	switch name {
	case stream.EventStart:
		var p stream.StartPayload
		err = json.Unmarshal(data, &p)
		payload = p
	case stream.EventContent, stream.EventTable:
		var p stream.ContentPayload
		err = json.Unmarshal(data, &p)
		payload = p
	case stream.EventDone:
		var p stream.DonePayload
		err = json.Unmarshal(data, &p)
		payload = p
	case stream.EventError:
		var p stream.ErrorPayload
		err = json.Unmarshal(data, &p)
		payload = p
	default:
		return stream.Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
	if err != nil {
		return stream.Event{}, fmt.Errorf("decode %s payload: %w", name, err)
	}
	return stream.Event{Name: name, Data: payload}, nil
}
