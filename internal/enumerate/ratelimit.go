package enumerate

import (
	"context"

	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps read throughput to
// bytesPerSec. The burst is 1 MB, or the rate itself when lower.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// throttle waits until n bytes may pass. WaitN rejects requests above the
// burst, so large chunks are admitted in burst-sized steps.
func throttle(ctx context.Context, l *rate.Limiter, n int) error {
	if l == nil || l.Limit() == rate.Inf {
		return nil
	}
	step := l.Burst()
	if step <= 0 {
		step = n
	}
	for n > 0 {
		k := min(n, step)
		if err := l.WaitN(ctx, k); err != nil {
			return err
		}
		n -= k
	}
	return nil
}
