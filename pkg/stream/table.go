package stream

import (
	"strings"
	"unicode/utf8"
)

// DefaultProseStarters 表格结束判定使用的段落起始词
var DefaultProseStarters = []string{"The", "This", "Here", "If", "You", "Please", "Let"}

// TableTracker 跟踪流中的 Markdown 表格
//
// 表格从关闭状态下出现的第一个 | 所在行开始，遇到空行或以常见段落起始词
// 开头且不含 | 的文本时结束。
type TableTracker struct {
	active bool
	start  int

	proseStarters []string
	minRowChars   int
	maxChars      int
}

// NewTableTracker 创建表格跟踪器
func NewTableTracker(proseStarters []string, minRowChars, maxChars int) *TableTracker {
	if len(proseStarters) == 0 {
		proseStarters = DefaultProseStarters
	}
	return &TableTracker{
		proseStarters: proseStarters,
		minRowChars:   minRowChars,
		maxChars:      maxChars,
	}
}

// Active 是否处于表格模式
func (t *TableTracker) Active() bool {
	return t.active
}

// Open 在 text[from:limit] 中查找表格起点
//
// 起点是第一个 | 所在行的行首，但不早于 floor。找到时进入表格模式。
func (t *TableTracker) Open(text string, from, limit, floor int) (int, bool) {
	idx := strings.IndexByte(text[from:limit], '|')
	if idx < 0 {
		return 0, false
	}
	start := strings.LastIndexByte(text[:from+idx], '\n') + 1
	if start < floor {
		start = floor
	}
	t.active = true
	t.start = start
	return start, true
}

// Close 退出表格模式
func (t *TableTracker) Close() {
	t.active = false
	t.start = 0
}

// End 判断 text[from:limit] 是否结束了当前表格，返回表格的结束偏移
//
// 空行（可能跨片段）属于表格本身；段落起始词之前的空白同样归入表格。
func (t *TableTracker) End(text string, from, limit int) (int, bool) {
	searchFrom := from - 1
	if searchFrom < t.start {
		searchFrom = t.start
	}
	if searchFrom < 0 {
		searchFrom = 0
	}
	if idx := strings.Index(text[searchFrom:limit], "\n\n"); idx >= 0 {
		return searchFrom + idx + 2, true
	}

	chunk := text[from:limit]
	if strings.IndexByte(chunk, '|') >= 0 {
		return 0, false
	}
	trimmed := strings.TrimLeft(chunk, " \t\r\n")
	if t.startsWithProse(trimmed) {
		return from + len(chunk) - len(trimmed), true
	}
	return 0, false
}

// startsWithProse 文本是否以段落起始词（完整单词）开头
func (t *TableTracker) startsWithProse(s string) bool {
	for _, word := range t.proseStarters {
		if !strings.HasPrefix(s, word) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(s[len(word):])
		if len(s) == len(word) || !isWordRune(next) {
			return true
		}
	}
	return false
}

// FlushLen 返回表格缓冲中可以立即发送的长度
//
// 超过阈值时全部发送，否则发送到最后一个完整行（以 | 结尾且去空白后不少于
// minRowChars 个字符，并已换行）为止；没有完整行时返回 0。
func (t *TableTracker) FlushLen(pending string) int {
	if utf8.RuneCountInString(pending) > t.maxChars {
		return len(pending)
	}
	return lastCompleteRowEnd(pending, t.minRowChars)
}

// lastCompleteRowEnd 返回最后一个完整表格行（含换行符）的结束偏移
func lastCompleteRowEnd(s string, minRowChars int) int {
	end := 0
	lineStart := 0
	for {
		nl := strings.IndexByte(s[lineStart:], '\n')
		if nl < 0 {
			return end
		}
		lineEnd := lineStart + nl
		if isCompleteRow(s[lineStart:lineEnd], minRowChars) {
			end = lineEnd + 1
		}
		lineStart = lineEnd + 1
	}
}

// isCompleteRow 单行是否为完整表格行
func isCompleteRow(line string, minRowChars int) bool {
	row := strings.TrimSpace(line)
	return strings.HasSuffix(row, "|") && utf8.RuneCountInString(row) >= minRowChars
}
