package judge

import (
	"context"
	"errors"
	"time"

	"github.com/masmgr/commitrounds/internal/worthiness"
)

const defaultRetryDelay = 300 * time.Millisecond

// WithRetry retries j up to attempts times with exponential backoff starting
// at baseDelay. Context cancellation stops the loop immediately.
func WithRetry(j worthiness.Judge, attempts int, baseDelay time.Duration) worthiness.Judge {
	if attempts < 1 {
		attempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = defaultRetryDelay
	}
	return &retrying{next: j, max: attempts, base: baseDelay}
}

type retrying struct {
	next worthiness.Judge
	max  int
	base time.Duration
}

func (r *retrying) Evaluate(ctx context.Context, acc worthiness.Context, opts worthiness.JudgeOptions) (worthiness.Verdict, error) {
	var last error
	for i := 0; i < r.max; i++ {
		v, err := r.next.Evaluate(ctx, acc, opts)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return worthiness.Verdict{}, err
		}
		last = err
		if i == r.max-1 {
			break
		}

		timer := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return worthiness.Verdict{}, ctx.Err()
		case <-timer.C:
		}
	}
	return worthiness.Verdict{}, last
}
