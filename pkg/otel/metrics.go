package otel

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Metrics 指标注册表，按名称返回仪器
type Metrics interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
	Gauge(name string) Gauge
}

// Counter 单调递增计数
type Counter interface {
	Add(ctx context.Context, value int64, attrs ...Attr)
}

// Histogram 分布记录，如运行时长
type Histogram interface {
	Record(ctx context.Context, value float64, attrs ...Attr)
}

// Gauge 瞬时值，如活跃流数
type Gauge interface {
	Set(ctx context.Context, value float64, attrs ...Attr)
}

// Attr 指标维度
type Attr struct {
	Key   string
	Value any
}

// NewAttr 创建指标维度
func NewAttr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// seriesKey 把维度集编码为稳定的键，顺序无关
func seriesKey(attrs []Attr) string {
	if len(attrs) == 0 {
		return ""
	}
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = fmt.Sprintf("%s=%v", a.Key, a.Value)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// matches 判断序列键是否包含全部给定维度
func matches(key string, attrs []Attr) bool {
	if len(attrs) == 0 {
		return true
	}
	have := make(map[string]struct{})
	for _, p := range strings.Split(key, ",") {
		have[p] = struct{}{}
	}
	for _, a := range attrs {
		if _, ok := have[fmt.Sprintf("%s=%v", a.Key, a.Value)]; !ok {
			return false
		}
	}
	return true
}

// InMemoryMetrics 进程内指标，测试通过它断言分段器和服务端的计数
//
// 每个仪器按维度集分序列保存，查询时可以只给出部分维度。
type InMemoryMetrics struct {
	mu         sync.Mutex
	counters   map[string]*InMemoryCounter
	histograms map[string]*InMemoryHistogram
	gauges     map[string]*InMemoryGauge
}

// NewInMemoryMetrics 创建进程内指标
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters:   make(map[string]*InMemoryCounter),
		histograms: make(map[string]*InMemoryHistogram),
		gauges:     make(map[string]*InMemoryGauge),
	}
}

func (m *InMemoryMetrics) Counter(name string) Counter {
	return m.counter(name)
}

func (m *InMemoryMetrics) counter(name string) *InMemoryCounter {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[name]
	if !ok {
		c = &InMemoryCounter{series: make(map[string]int64)}
		m.counters[name] = c
	}
	return c
}

func (m *InMemoryMetrics) Histogram(name string) Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histograms[name]
	if !ok {
		h = &InMemoryHistogram{series: make(map[string][]float64)}
		m.histograms[name] = h
	}
	return h
}

func (m *InMemoryMetrics) Gauge(name string) Gauge {
	return m.gauge(name)
}

func (m *InMemoryMetrics) gauge(name string) *InMemoryGauge {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gauges[name]
	if !ok {
		g = &InMemoryGauge{series: make(map[string]float64)}
		m.gauges[name] = g
	}
	return g
}

// GetCounterValue 返回计数器所有序列之和
func (m *InMemoryMetrics) GetCounterValue(name string) int64 {
	return m.CounterValueWith(name)
}

// CounterValueWith 返回包含给定维度的序列之和
func (m *InMemoryMetrics) CounterValueWith(name string, attrs ...Attr) int64 {
	m.mu.Lock()
	c, ok := m.counters[name]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	return c.sum(attrs)
}

// GetGaugeValue 返回最近一次设置的值
func (m *InMemoryMetrics) GetGaugeValue(name string) float64 {
	m.mu.Lock()
	g, ok := m.gauges[name]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	return g.Value()
}

// InMemoryCounter 进程内计数器
type InMemoryCounter struct {
	mu     sync.Mutex
	series map[string]int64
}

func (c *InMemoryCounter) Add(_ context.Context, value int64, attrs ...Attr) {
	key := seriesKey(attrs)
	c.mu.Lock()
	c.series[key] += value
	c.mu.Unlock()
}

// Value 所有序列之和
func (c *InMemoryCounter) Value() int64 {
	return c.sum(nil)
}

func (c *InMemoryCounter) sum(attrs []Attr) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for key, v := range c.series {
		if matches(key, attrs) {
			total += v
		}
	}
	return total
}

// InMemoryHistogram 进程内直方图
type InMemoryHistogram struct {
	mu     sync.Mutex
	order  []float64
	series map[string][]float64
}

func (h *InMemoryHistogram) Record(_ context.Context, value float64, attrs ...Attr) {
	key := seriesKey(attrs)
	h.mu.Lock()
	h.order = append(h.order, value)
	h.series[key] = append(h.series[key], value)
	h.mu.Unlock()
}

// Values 按记录顺序返回全部样本
func (h *InMemoryHistogram) Values() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.order...)
}

// ValuesWith 返回包含给定维度的样本，序列之间无序
func (h *InMemoryHistogram) ValuesWith(attrs ...Attr) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []float64
	for key, vs := range h.series {
		if matches(key, attrs) {
			out = append(out, vs...)
		}
	}
	return out
}

// InMemoryGauge 进程内仪表
type InMemoryGauge struct {
	mu     sync.Mutex
	last   float64
	series map[string]float64
}

func (g *InMemoryGauge) Set(_ context.Context, value float64, attrs ...Attr) {
	g.mu.Lock()
	g.last = value
	g.series[seriesKey(attrs)] = value
	g.mu.Unlock()
}

// Value 最近一次设置的值，不区分维度
func (g *InMemoryGauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// NoopMetrics 关闭指标时使用
type NoopMetrics struct{}

// NewNoopMetrics 创建空指标
func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (NoopMetrics) Counter(string) Counter     { return NoopCounter{} }
func (NoopMetrics) Histogram(string) Histogram { return NoopHistogram{} }
func (NoopMetrics) Gauge(string) Gauge         { return NoopGauge{} }

type NoopCounter struct{}

func (NoopCounter) Add(context.Context, int64, ...Attr) {}

type NoopHistogram struct{}

func (NoopHistogram) Record(context.Context, float64, ...Attr) {}

type NoopGauge struct{}

func (NoopGauge) Set(context.Context, float64, ...Attr) {}

// compile-time interface check
var (
	_ Metrics   = (*InMemoryMetrics)(nil)
	_ Metrics   = (*NoopMetrics)(nil)
	_ Counter   = (*InMemoryCounter)(nil)
	_ Histogram = (*InMemoryHistogram)(nil)
	_ Gauge     = (*InMemoryGauge)(nil)
)
