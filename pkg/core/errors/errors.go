// Package errors 定义上游模型调用与分段流共用的哨兵错误及分类函数
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrContextCanceled = errors.New("context canceled")
)

// 上游模型服务，由 llm 包按 HTTP 状态码映射
var (
	ErrRateLimited         = errors.New("rate limited")
	ErrTimeout             = errors.New("request timeout")
	ErrInvalidAPIKey       = errors.New("invalid API key")
	ErrModelNotFound       = errors.New("model not found")
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// 分段流与 HTTP 入口
var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrStreamClosed       = errors.New("stream closed")
	ErrEmptyMessage       = errors.New("message cannot be empty")
)

// 上游只给出字符串错误时，按这些片段识别断连
var disconnectMarkers = []string{
	"connection is closed",
	"client disconnected",
	"cancelled",
	"broken pipe",
}

// WrapError 在 err 前加上说明，err 为 nil 时返回 nil
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IsRetryable 限速、超时与服务不可用值得重试
func IsRetryable(err error) bool {
	return isAny(err, ErrRateLimited, ErrTimeout, ErrProviderUnavailable)
}

// IsFatal 重试也不会成功的错误
func IsFatal(err error) bool {
	return isAny(err, ErrInvalidAPIKey, ErrModelNotFound, ErrInvalidConfig)
}

// IsDisconnect 客户端离开或调用方取消
//
// 分段器把这类错误当作正常结束，发 done 而不是 error。
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if isAny(err, ErrClientDisconnected, ErrStreamClosed, ErrContextCanceled, context.Canceled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range disconnectMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isAny(err error, targets ...error) bool {
	if err == nil {
		return false
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
