package stream

import "strings"

// Section ReAct 推理阶段
type Section string

const (
	// SectionNone 尚未识别到任何阶段
	SectionNone Section = "none"
	// SectionThought 思考阶段
	SectionThought Section = "thought"
	// SectionAction 行动阶段
	SectionAction Section = "action"
	// SectionObservation 观察阶段
	SectionObservation Section = "observation"
	// SectionFinalAnswer 最终答案阶段
	SectionFinalAnswer Section = "final_answer"
)

// IsNone 是否尚未进入任何阶段
func (s Section) IsNone() bool {
	return s == "" || s == SectionNone
}

// String 返回阶段名称
func (s Section) String() string {
	if s == "" {
		return string(SectionNone)
	}
	return string(s)
}

// sectionHeader 阶段标题词表（小写，用于 ASCII 大小写不敏感匹配）
type sectionHeader struct {
	section Section
	name    string
}

var sectionHeaders = []sectionHeader{
	{SectionThought, "thought"},
	{SectionAction, "action"},
	{SectionObservation, "observation"},
	{SectionFinalAnswer, "final answer"},
}

// toolMarkers 上游工具调用回显的特征（小写）
var toolMarkers = []string{
	"**tool execution result",
	"tool execution error",
}

// Detection 阶段检测结果
type Detection struct {
	// Section 检测到的阶段，未检测到时为 SectionNone
	Section Section
	// Offset 标题（或工具标记）在被检测文本中的起始偏移
	Offset int
	// ToolMarker 结果来自工具回显标记而非阶段标题
	ToolMarker bool
}

// Found 是否检测到阶段
func (d Detection) Found() bool {
	return !d.Section.IsNone()
}

// SectionDetector 在文本中识别最近打开的阶段标题
//
// 匹配过程是在 ** 出现位置上对固定词表做前缀比较，不使用正则：
//  1. 每个阶段取最后一次出现的 **Header:** 或 **Header :**
//  2. 第 1 步未命中的阶段，再取最后一次出现的 **Header**
//  3. 候选中有 final_answer 时它总是胜出，否则偏移最大者胜出
//  4. 没有任何标题时，工具执行结果/错误标记视为 observation
type SectionDetector struct{}

// NewSectionDetector 创建阶段检测器
func NewSectionDetector() *SectionDetector {
	return &SectionDetector{}
}

// Detect 检测文本中当前生效的阶段
func (d *SectionDetector) Detect(text string) Detection {
	lower := asciiLower(text)

	colon := make(map[Section]int, len(sectionHeaders))
	bare := make(map[Section]int, len(sectionHeaders))

	for from := 0; ; {
		idx := strings.Index(lower[from:], boldMarker)
		if idx < 0 {
			break
		}
		pos := from + idx
		if section, n, withColon := matchHeader(lower[pos:]); n > 0 {
			if withColon {
				colon[section] = pos
			} else {
				bare[section] = pos
			}
		}
		from = pos + 1
	}

	candidates := colon
	for section, pos := range bare {
		if _, resolved := colon[section]; !resolved {
			candidates[section] = pos
		}
	}

	if pos, ok := candidates[SectionFinalAnswer]; ok {
		return Detection{Section: SectionFinalAnswer, Offset: pos}
	}

	best := Detection{Section: SectionNone, Offset: -1}
	for _, h := range sectionHeaders {
		if pos, ok := candidates[h.section]; ok && pos > best.Offset {
			best = Detection{Section: h.section, Offset: pos}
		}
	}
	if best.Found() {
		return best
	}

	for _, marker := range toolMarkers {
		if idx := strings.Index(lower, marker); idx >= 0 {
			if idx >= 2 && lower[idx-2:idx] == boldMarker {
				idx -= 2
			}
			return Detection{Section: SectionObservation, Offset: idx, ToolMarker: true}
		}
	}

	return Detection{Section: SectionNone}
}

// HeaderEnds 返回 text 中每个完整阶段标题的结束偏移，按出现顺序
func (d *SectionDetector) HeaderEnds(text string) []int {
	lower := asciiLower(text)
	var ends []int
	for from := 0; ; {
		idx := strings.Index(lower[from:], boldMarker)
		if idx < 0 {
			return ends
		}
		pos := from + idx
		if _, n, _ := matchHeader(lower[pos:]); n > 0 {
			ends = append(ends, pos+n)
		}
		from = pos + 1
	}
}

// headerForms 标题的三种写法，按 **name:**、**name :**、**name** 顺序
func headerForms(name string) [3]string {
	return [3]string{
		boldMarker + name + ":" + boldMarker,
		boldMarker + name + " :" + boldMarker,
		boldMarker + name + boldMarker,
	}
}

// matchHeader 判断小写文本 s 是否以阶段标题开头
//
// 返回阶段、标题长度以及是否为带冒号的写法；不是标题时长度为 0。
func matchHeader(s string) (Section, int, bool) {
	for _, h := range sectionHeaders {
		for i, form := range headerForms(h.name) {
			if strings.HasPrefix(s, form) {
				return h.section, len(form), i < 2
			}
		}
	}
	return SectionNone, 0, false
}

// isHeaderPrefix 小写文本 s 是否是某个标题写法的真前缀，即再来几个字符可能成为标题
func isHeaderPrefix(s string) bool {
	for _, h := range sectionHeaders {
		for _, form := range headerForms(h.name) {
			if len(s) < len(form) && strings.HasPrefix(form, s) {
				return true
			}
		}
	}
	return false
}

// asciiLower 只转换 ASCII 大写字母，保持字节偏移不变
func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'A' && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
