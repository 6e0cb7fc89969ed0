package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/persistorai/dashsync/internal/metrics"
)

// warmup probes the backend up to WarmupAttempts times, waiting
// WarmupDelay*attempt between probes. Each probe has its own short deadline.
func (c *Controller) warmup(ctx context.Context) error {
	attempt := 0

	linear := retry.BackoffFunc(func() (time.Duration, bool) {
		return c.opts.WarmupDelay * time.Duration(attempt), false
	})
	b := retry.WithMaxRetries(uint64(c.opts.WarmupAttempts-1), linear) //nolint:gosec // WarmupAttempts is at least 1.

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++

		actx, cancel := context.WithTimeout(ctx, c.opts.WarmupTimeout)
		defer cancel()

		if err := c.backend.Warmup(actx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			metrics.WarmupAttempts.WithLabelValues("failed").Inc()
			c.log.WithError(err).WithField("attempt", attempt).Debug("warm-up probe failed")

			return retry.RetryableError(err)
		}

		metrics.WarmupAttempts.WithLabelValues("ok").Inc()

		return nil
	})
	if err == nil || ctx.Err() != nil {
		return err
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrWarmupFailed, attempt, err)
}
