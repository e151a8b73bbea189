// Package message 定义发往模型的对话消息与流片段的角色
package message

import "strings"

// Role 消息或流片段的发送方
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid 是否为规范的角色值
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// IsSystem 大小写不敏感，上游也可能写作 "SystemMessage"
func (r Role) IsSystem() bool {
	return strings.EqualFold(string(r), string(RoleSystem)) ||
		strings.EqualFold(string(r), "SystemMessage")
}

// ParseRole 把上游或录制文件里的角色归一化
//
// 系统角色的各种写法都归为 RoleSystem，空值和无法识别的值按 assistant 处理。
func ParseRole(s string) Role {
	r := Role(strings.TrimSpace(s))
	switch {
	case r.IsSystem():
		return RoleSystem
	case strings.EqualFold(string(r), string(RoleUser)):
		return RoleUser
	default:
		return RoleAssistant
	}
}

// Message 一条发给模型的消息
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage 创建系统提示
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage 创建用户消息
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage 创建助手消息，多轮对话回放时使用
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
