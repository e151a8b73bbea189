package message

// TokenUsage 一次模型调用的用量，字段名与 OpenAI usage 对象一致
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewTokenUsage 上游未给出总数时按两者之和补齐
func NewTokenUsage(prompt, completion, total int) TokenUsage {
	if total == 0 {
		total = prompt + completion
	}
	return TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}

// IsZero 上游没有返回用量
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}
