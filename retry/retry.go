package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Supervisor re-invokes failing operations up to a bound.
type Supervisor struct {
	maxAttempts uint64
	delay       time.Duration
	logger      *zap.Logger
}

// New creates a supervisor running an operation at most maxAttempts times
// with delay between attempts. maxAttempts below one is treated as one.
func New(logger *zap.Logger, maxAttempts int, delay time.Duration) *Supervisor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Supervisor{
		maxAttempts: uint64(maxAttempts),
		delay:       delay,
		logger:      logger,
	}
}

// Do runs op until it succeeds, returns a permanent error, the attempt
// budget is exhausted, or ctx is done. The last error is returned.
func (s *Supervisor) Do(ctx context.Context, op func() error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err != nil {
			s.logger.Warn("supervised operation failed",
				zap.Int("attempt", attempt),
				zap.Uint64("max_attempts", s.maxAttempts),
				zap.Error(err))
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.delay), s.maxAttempts-1),
		ctx)
	return backoff.Retry(wrapped, policy)
}

// Permanent marks err as non-retryable; the supervisor stops immediately
// and returns the wrapped error.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
