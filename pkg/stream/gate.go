package stream

import (
	"strings"
	"unicode/utf8"
)

// headerKeywords 门控判断使用的阶段关键字（小写，加粗与否均可命中）
var headerKeywords = []string{"thought:", "action:", "observation:", "final answer:"}

// ChunkGate 判断非表格内容是否可以发送
type ChunkGate struct {
	headerTailChars int
	maxChars        int
	minRowChars     int
}

// NewChunkGate 创建内容门控
func NewChunkGate(headerTailChars, maxChars, minRowChars int) ChunkGate {
	return ChunkGate{
		headerTailChars: headerTailChars,
		maxChars:        maxChars,
		minRowChars:     minRowChars,
	}
}

// Ready 缓冲文本是否应当立即发送
func (g ChunkGate) Ready(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return g.headerHasTail(text) ||
		endsSentence(text) ||
		utf8.RuneCountInString(text) > g.maxChars ||
		lastCompleteRowEnd(text, g.minRowChars) > 0
}

// headerHasTail 最后一个阶段关键字之后是否已有足够的内容
func (g ChunkGate) headerHasTail(text string) bool {
	lower := asciiLower(text)
	last, kwLen := -1, 0
	for _, kw := range headerKeywords {
		if idx := strings.LastIndex(lower, kw); idx > last {
			last, kwLen = idx, len(kw)
		}
	}
	if last < 0 {
		return false
	}
	tail := strings.TrimPrefix(text[last+kwLen:], boldMarker)
	return utf8.RuneCountInString(strings.TrimSpace(tail)) > g.headerTailChars
}

// endsSentence 是否以句末标点或空行结束
func endsSentence(text string) bool {
	if strings.HasSuffix(text, "\n\n") {
		return true
	}
	trimmed := strings.TrimRight(text, " \t\r\n")
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
