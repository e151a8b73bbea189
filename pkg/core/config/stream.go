package config

// StreamConfig 流式分段器配置
//
// 列表类字段为空时使用 stream 包内置的默认词表。
type StreamConfig struct {
	// HeaderTailChars 阶段标题之后需要积累的最少字符数
	// 默认: 10
	HeaderTailChars int `koanf:"header_tail_chars"`
	// ContentChunkChars 普通内容的最大缓冲长度
	// 默认: 100
	ContentChunkChars int `koanf:"content_chunk_chars"`
	// TableChunkChars 表格内容的最大缓冲长度
	// 默认: 200
	TableChunkChars int `koanf:"table_chunk_chars"`
	// MinRowChars 完整表格行的最短长度
	// 默认: 5
	MinRowChars int `koanf:"min_row_chars"`
	// DetectionWindow 分段检测扫描的尾部窗口
	// 默认: 200
	DetectionWindow int `koanf:"detection_window"`
	// ProseStarters 判定表格结束的段落起始词
	ProseStarters []string `koanf:"prose_starters"`
	// SystemSignatures 额外的系统提示特征串，命中的片段不会发送给客户端
	SystemSignatures []string `koanf:"system_signatures"`
	// EventBuffer 事件通道容量
	// 默认: 10
	EventBuffer int `koanf:"event_buffer"`
}

// Validate 验证分段器配置
func (c *StreamConfig) Validate() error {
	if c.HeaderTailChars < 0 || c.ContentChunkChars <= 0 || c.TableChunkChars <= 0 ||
		c.MinRowChars < 0 || c.DetectionWindow <= 0 {
		return ErrInvalidThreshold
	}
	if c.EventBuffer < 0 {
		return ErrInvalidBufferSize
	}
	return nil
}

// WithDefaults 返回带默认值的配置
func (c StreamConfig) WithDefaults() StreamConfig {
	if c.HeaderTailChars == 0 {
		c.HeaderTailChars = 10
	}
	if c.ContentChunkChars == 0 {
		c.ContentChunkChars = 100
	}
	if c.TableChunkChars == 0 {
		c.TableChunkChars = 200
	}
	if c.MinRowChars == 0 {
		c.MinRowChars = 5
	}
	if c.DetectionWindow == 0 {
		c.DetectionWindow = 200
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = 10
	}
	return c
}
