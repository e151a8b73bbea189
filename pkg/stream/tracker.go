package stream

import "strings"

// freshFinalHeader 判断终态中是否出现了新的最终答案标题
const freshFinalHeader = "**final answer"

// Transition 一次阶段推进的结果
type Transition struct {
	// From 推进前的阶段
	From Section
	// To 推进后的阶段
	To Section
	// Changed 阶段是否发生变化
	Changed bool
	// Offset 新阶段标题的偏移（仅 Changed 时有意义）
	Offset int
	// Continuation 终态中的非终态检测被当作最终答案的延续
	Continuation bool
	// Rule 命中的规则名称
	Rule string
}

// ruleInput 规则匹配的输入
type ruleInput struct {
	current    Section
	detection  Detection
	seenHeader bool
	fresh      bool
}

// transitionRule 阶段转移规则，按顺序匹配，第一条命中的规则生效
type transitionRule struct {
	name   string
	when   func(in ruleInput) bool
	next   func(in ruleInput) Section
	sticky bool
}

func keepCurrent(in ruleInput) Section  { return in.current }
func takeDetected(in ruleInput) Section { return in.detection.Section }

// transitionRules 阶段转移规则表
//
// final_answer 是吸收态：进入后只会停留在 final_answer。
var transitionRules = []transitionRule{
	{
		name: "no-detection",
		when: func(in ruleInput) bool { return !in.detection.Found() },
		next: keepCurrent,
	},
	{
		name: "tool-marker-after-header",
		when: func(in ruleInput) bool { return in.detection.ToolMarker && in.seenHeader },
		next: keepCurrent,
	},
	{
		name: "final-answer-sticky",
		when: func(in ruleInput) bool {
			return in.current == SectionFinalAnswer && in.detection.Section != SectionFinalAnswer
		},
		next:   keepCurrent,
		sticky: true,
	},
	{
		name: "same-section",
		when: func(in ruleInput) bool { return in.detection.Section == in.current },
		next: keepCurrent,
	},
	{
		name: "enter-section",
		when: func(in ruleInput) bool { return true },
		next: takeDetected,
	},
}

// SectionTracker 维护单次流的阶段状态
type SectionTracker struct {
	current    Section
	seenHeader bool
}

// NewSectionTracker 创建阶段跟踪器，初始阶段为 SectionNone
func NewSectionTracker() *SectionTracker {
	return &SectionTracker{current: SectionNone}
}

// Current 返回当前阶段
func (t *SectionTracker) Current() Section {
	return t.current
}

// Advance 根据检测结果与触发检测的文本片段推进阶段
func (t *SectionTracker) Advance(d Detection, fragment string) Transition {
	in := ruleInput{
		current:    t.current,
		detection:  d,
		seenHeader: t.seenHeader,
		fresh:      strings.Contains(asciiLower(fragment), freshFinalHeader),
	}

	if d.Found() && !d.ToolMarker {
		t.seenHeader = true
	}

	for _, rule := range transitionRules {
		if !rule.when(in) {
			continue
		}
		next := rule.next(in)
		tr := Transition{
			From:         t.current,
			To:           next,
			Changed:      next != t.current,
			Offset:       d.Offset,
			Continuation: rule.sticky && !in.fresh,
			Rule:         rule.name,
		}
		t.current = next
		return tr
	}

	return Transition{From: t.current, To: t.current}
}
