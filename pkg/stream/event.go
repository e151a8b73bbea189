package stream

import "encoding/json"

// EventName 线上事件名称
type EventName string

const (
	// EventStart 流开始，发送内容之前恰好一次
	EventStart EventName = "start"
	// EventContent 非表格内容，或阶段切换通知（content 为空）
	EventContent EventName = "content"
	// EventTable 表格内容
	EventTable EventName = "table"
	// EventDone 正常结束或客户端断开，终止事件
	EventDone EventName = "done"
	// EventError 上游失败，终止事件，与 done 互斥
	EventError EventName = "error"
)

// ContentTypePlain 未识别阶段时内容事件的类型
const ContentTypePlain = "content"

// StatusCompleted done 事件的状态
const StatusCompleted = "completed"

// NoteClientDisconnected 客户端断开时 done 事件的附注
const NoteClientDisconnected = "client_disconnected"

// StartPayload start 事件数据
type StartPayload struct {
	ThreadID string `json:"thread_id"`
	Model    string `json:"model"`
}

// ContentPayload content / table 事件数据
type ContentPayload struct {
	Content string `json:"content"`
	Section string `json:"section,omitempty"`
	Type    string `json:"type"`
	IsTable bool   `json:"is_table,omitempty"`
}

// DonePayload done 事件数据
type DonePayload struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// ErrorPayload error 事件数据
type ErrorPayload struct {
	Error string `json:"error"`
}

// Event 一条线上事件
type Event struct {
	Name EventName
	Data any
}

// MarshalData 序列化事件数据为 JSON
func (e Event) MarshalData() ([]byte, error) {
	return json.Marshal(e.Data)
}

// Content 返回 content / table 事件的数据
func (e Event) Content() (ContentPayload, bool) {
	p, ok := e.Data.(ContentPayload)
	return p, ok
}

// IsTerminal 是否为终止事件
func (e Event) IsTerminal() bool {
	return e.Name == EventDone || e.Name == EventError
}

// NewStartEvent 创建 start 事件
func NewStartEvent(threadID, model string) Event {
	return Event{Name: EventStart, Data: StartPayload{ThreadID: threadID, Model: model}}
}

// NewContentEvent 创建 content 事件
func NewContentEvent(content string, section Section) Event {
	return Event{Name: EventContent, Data: newContentPayload(content, section, false)}
}

// NewTableEvent 创建 table 事件
func NewTableEvent(content string, section Section) Event {
	return Event{Name: EventTable, Data: newContentPayload(content, section, true)}
}

// NewSectionEvent 创建阶段切换通知
func NewSectionEvent(section Section) Event {
	return NewContentEvent("", section)
}

// NewDoneEvent 创建 done 事件
func NewDoneEvent(note string) Event {
	return Event{Name: EventDone, Data: DonePayload{Status: StatusCompleted, Note: note}}
}

// NewErrorEvent 创建 error 事件
func NewErrorEvent(err error) Event {
	return Event{Name: EventError, Data: ErrorPayload{Error: err.Error()}}
}

func newContentPayload(content string, section Section, table bool) ContentPayload {
	p := ContentPayload{Content: content, Type: ContentTypePlain, IsTable: table}
	if !section.IsNone() {
		p.Section = string(section)
		p.Type = string(section)
	}
	return p
}
