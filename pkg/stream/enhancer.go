package stream

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// boldMarker Markdown 加粗标记
const boldMarker = "**"

// phaseKeywords 需要规范化为加粗形式的阶段关键字（大小写敏感，首字母互不相同）
var phaseKeywords = []string{"Thought:", "Action:", "Observation:", "Final Answer:"}

type keywordMatch int

const (
	matchNone keywordMatch = iota
	matchBold
	matchPending
)

// Enhance 将未加粗的阶段关键字改写为 **Keyword:** 形式
//
// 关键字必须位于词边界，且前后都没有紧邻的 ** 才会被改写。多次调用结果不变。
func Enhance(s string) string {
	out, _ := enhanceTail("", s, true)
	return out
}

// enhanceTail 增强 raw 中已能判定的部分，返回增强结果与尚未判定的 raw 后缀
//
// prev 是已输出文本的末尾（至少包含最后一个字符与最后两个字节），用于词边界
// 与 ** 判断。final 为 false 时，末尾可能构成关键字（或关键字后可能紧跟 **）的
// 文本会被保留，等待更多输入后再判定，保证分片增强的拼接结果与整体增强一致。
func enhanceTail(prev, raw string, final bool) (string, string) {
	out := make([]byte, 0, len(prev)+len(raw)+16)
	out = append(out, prev...)
	pending := ""

	for i := 0; i < len(raw); {
		c := raw[i]
		if isKeywordLead(c) && atKeywordBoundary(out) {
			kw, m := matchKeyword(raw[i:], final)
			if m == matchPending {
				pending = raw[i:]
				break
			}
			if m == matchBold {
				out = append(out, boldMarker...)
				out = append(out, kw...)
				out = append(out, boldMarker...)
				i += len(kw)
				continue
			}
		}
		out = append(out, c)
		i++
	}
	return string(out[len(prev):]), pending
}

func isKeywordLead(c byte) bool {
	return c == 'T' || c == 'A' || c == 'O' || c == 'F'
}

// atKeywordBoundary 已输出文本的末尾既不是单词字符，也不是 **
func atKeywordBoundary(out []byte) bool {
	if len(out) == 0 {
		return true
	}
	if len(out) >= 2 && out[len(out)-1] == '*' && out[len(out)-2] == '*' {
		return false
	}
	r, _ := utf8.DecodeLastRune(out)
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func matchKeyword(rest string, final bool) (string, keywordMatch) {
	for _, kw := range phaseKeywords {
		if len(rest) < len(kw) {
			if !final && strings.HasPrefix(kw, rest) {
				return "", matchPending
			}
			continue
		}
		if !strings.HasPrefix(rest, kw) {
			continue
		}
		after := rest[len(kw):]
		if strings.HasPrefix(after, boldMarker) {
			return kw, matchNone
		}
		if !final && len(after) < len(boldMarker) && strings.HasPrefix(boldMarker, after) {
			return "", matchPending
		}
		return kw, matchBold
	}
	return "", matchNone
}
