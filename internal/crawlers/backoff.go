package crawlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/RecoveryAshes/knapsack/internal/utils"
)

// RetryConfig 指数退避重试参数
type RetryConfig struct {
	// InitialDelay 第一次失败后的等待时间
	InitialDelay time.Duration

	// MaxRetries 最大重试次数,负数表示无限重试
	// N >= 0 时最多尝试 N+1 次
	MaxRetries int

	// BackoffFactor 每次失败后延迟的倍数
	BackoffFactor float64

	// MaxDelay 单次等待上限,0表示不设上限
	MaxDelay time.Duration
}

// DefaultRetryConfig 默认重试参数: 1秒起步,翻倍增长,无限重试
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay:  time.Second,
		MaxRetries:    -1,
		BackoffFactor: 2,
		MaxDelay:      0,
	}
}

// FailureFunc 每次尝试失败后的回调,attempt从1开始
type FailureFunc func(attempt int, err error)

// permanentError 重试也无法恢复的失败
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 标记err为不可重试,Retry遇到后立即放弃
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent 检查err是否被标记为不可重试
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// sleep 等待指定时间,context取消时提前返回
// 测试中替换为不真正等待的实现
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry 执行op直到成功或重试次数耗尽
//
// 成功时返回 (结果, true);重试耗尽或ctx取消时返回 (零值, false)。
// "没有结果"是正常返回,调用方按跳过处理,不会得到错误。
// op中的panic按失败处理;Permanent包装的错误不再重试。
func Retry[T any](ctx context.Context, op func(ctx context.Context) (T, error), onFailure FailureFunc, cfg RetryConfig) (T, bool) {
	var zero T

	factor := cfg.BackoffFactor
	if factor <= 0 {
		factor = 1
	}
	delay := cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return zero, false
		}

		value, err := safeCall(ctx, op)
		if err == nil {
			return value, true
		}

		notifyFailure(onFailure, attempt, err)

		if IsPermanent(err) {
			return zero, false
		}
		if cfg.MaxRetries >= 0 && attempt > cfg.MaxRetries {
			return zero, false
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, false
		}

		delay = nextDelay(delay, factor, cfg.MaxDelay)
	}
}

// nextDelay 计算下一次等待时间,溢出时截断为最大Duration
func nextDelay(current time.Duration, factor float64, maxDelay time.Duration) time.Duration {
	d := time.Duration(math.MaxInt64)
	if next := float64(current) * factor; next < float64(math.MaxInt64) {
		d = time.Duration(next)
	}
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	return d
}

func safeCall[T any](ctx context.Context, op func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("操作panic: %v", r)
		}
	}()
	return op(ctx)
}

func notifyFailure(onFailure FailureFunc, attempt int, err error) {
	if onFailure == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			utils.Warnf("重试回调panic (第%d次尝试): %v", attempt, r)
		}
	}()
	onFailure(attempt, err)
}
