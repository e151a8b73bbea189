package llm

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/easyops/reactstream/pkg/core/errors"
)

// maxBackoff 单次重试的最大等待时间
const maxBackoff = 30 * time.Second

// RetryFunc 可重试的函数类型
type RetryFunc func() error

// RetryHook 每次失败后、等待前的回调
type RetryHook func(attempt int, err error)

// retry 执行带指数退避的重试
//
// 只有 errors.IsRetryable 判定为可重试的错误才会再次尝试。
func retry(ctx context.Context, maxRetries int, baseDelay time.Duration, onRetry RetryHook, fn RetryFunc) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return errors.ErrContextCanceled
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !errors.IsRetryable(err) || attempt == maxRetries {
			return err
		}

		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		timer := time.NewTimer(calculateBackoff(attempt, baseDelay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.ErrContextCanceled
		case <-timer.C:
		}
	}

	return lastErr
}

// calculateBackoff 计算指数退避时间
// 公式: baseDelay * 2^attempt，再加上最多 10% 的随机抖动，上限 30 秒
func calculateBackoff(attempt int, baseDelay time.Duration) time.Duration {
	delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)))
	if delay > maxBackoff || delay <= 0 {
		return maxBackoff
	}

	if jitter := int64(delay) / 10; jitter > 0 {
		delay += time.Duration(rand.Int64N(jitter))
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}
