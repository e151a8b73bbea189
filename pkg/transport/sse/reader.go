package sse

import (
	"bufio"
	"io"
	"strings"
)

// Reader 从字节流中逐帧解析 SSE
type Reader struct {
	scanner *bufio.Scanner

	current *Frame
	hasData bool
}

// NewReader 创建 SSE 读取端
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{
		scanner: scanner,
		current: &Frame{},
	}
}

// Next 阻塞直到读到一个完整帧
//
// 源耗尽时返回 nil, nil；末尾缺少空行的帧仍会返回。
func (r *Reader) Next() (*Frame, error) {
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			if r.hasData {
				frame := r.current
				r.reset()
				return frame, nil
			}
			continue
		}

		// 注释行
		if strings.HasPrefix(line, ":") {
			continue
		}

		r.parseLine(line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if r.hasData {
		frame := r.current
		r.reset()
		return frame, nil
	}
	return nil, nil
}

// ReadAll 读取全部帧
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		frame, err := r.Next()
		if err != nil {
			return frames, err
		}
		if frame == nil {
			return frames, nil
		}
		frames = append(frames, frame)
	}
}

// parseLine 解析 "field:value" 行，冒号后的一个空格可省略
func (r *Reader) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Event = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	default:
		// retry 与未知字段忽略
	}
}

func (r *Reader) reset() {
	r.current = &Frame{}
	r.hasData = false
}
