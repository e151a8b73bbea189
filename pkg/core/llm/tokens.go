package llm

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter 定义 Token 计数接口
type TokenCounter interface {
	// Count 返回给定文本的 Token 数量
	Count(text string) int
}

// TiktokenCounter 使用 tiktoken 实现精确的 Token 计数
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter 创建 TiktokenCounter
//
// 未知模型降级到 cl100k_base 编码。首次使用需要加载 BPE 词表。
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	if model == "" {
		model = "gpt-4o"
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

// Count 返回给定文本的 Token 数量
func (c *TiktokenCounter) Count(text string) int {
	if c.encoding == nil {
		return estimateTokens(text)
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimatedCounter 使用字符估算实现 Token 计数
//
// tiktoken 词表不可用（离线环境）时的降级方案。
type EstimatedCounter struct{}

// NewEstimatedCounter 创建 EstimatedCounter
func NewEstimatedCounter() *EstimatedCounter {
	return &EstimatedCounter{}
}

// Count 返回估算的 Token 数量
func (c *EstimatedCounter) Count(text string) int {
	return estimateTokens(text)
}

// estimateTokens 混合字符数与词数的粗略估算
func estimateTokens(text string) int {
	charCount := len(text)
	wordCount := len(strings.Fields(text))
	if wordCount == 0 {
		return charCount / 4
	}
	charBased := charCount / 4
	wordBased := int(float64(wordCount) * 1.3)
	return (charBased + wordBased) / 2
}

// DefaultTokenCounter 优先使用 tiktoken，不可用时降级到估算
func DefaultTokenCounter(model string) TokenCounter {
	counter, err := NewTiktokenCounter(model)
	if err != nil {
		return NewEstimatedCounter()
	}
	return counter
}

// compile-time interface check
var _ TokenCounter = (*TiktokenCounter)(nil)
var _ TokenCounter = (*EstimatedCounter)(nil)
