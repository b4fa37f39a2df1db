package llm

import (
	"context"
	"errors"
	"net"
	"time"

	"HealthAgent/pkg/circuitbreaker"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// resilientLLM 为底层客户端增加有界指数退避重试和熔断保护。
// 只有瞬态错误（限流、5xx、超时）会重试；认证错误和畸形请求立即失败。
type resilientLLM struct {
	inner    LLM
	attempts int
	backoff  time.Duration
	breaker  *circuitbreaker.Breaker
}

// WithResilience 包装一个 LLM 客户端。attempts 是总尝试次数（含首次）。
func WithResilience(inner LLM, attempts int, breaker *circuitbreaker.Breaker) LLM {
	if attempts <= 0 {
		attempts = 3
	}
	return &resilientLLM{
		inner:    inner,
		attempts: attempts,
		backoff:  500 * time.Millisecond,
		breaker:  breaker,
	}
}

func (r *resilientLLM) Generate(ctx context.Context, messages []Message) (string, error) {
	var reply string
	err := r.breaker.Do(func() error {
		var err error
		reply, err = r.retry(ctx, func() (string, error) {
			return r.inner.Generate(ctx, messages)
		})
		return err
	})
	return reply, err
}

// GenerateStream 只对建立流的调用做重试，流建立后的错误不再重试。
func (r *resilientLLM) GenerateStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	var stream <-chan StreamChunk
	err := r.breaker.Do(func() error {
		delay := r.backoff
		var lastErr error
		for attempt := 0; attempt < r.attempts; attempt++ {
			if attempt > 0 {
				if err := sleepCtx(ctx, delay); err != nil {
					return lastErr
				}
				delay *= 2
			}
			var err error
			stream, err = r.inner.GenerateStream(ctx, messages)
			if err == nil {
				return nil
			}
			lastErr = err
			if !IsRetryable(err) {
				return err
			}
		}
		return lastErr
	})
	return stream, err
}

func (r *resilientLLM) retry(ctx context.Context, fn func() (string, error)) (string, error) {
	delay := r.backoff
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return "", lastErr
			}
			delay *= 2
		}
		reply, err := fn()
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryable 判断一个错误是否为值得重试的瞬态错误。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return true
		case apiErr.HTTPStatusCode >= 500:
			return true
		default:
			// 401/403/400 等请求本身的问题，重试没有意义。
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
