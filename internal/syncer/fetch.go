package syncer

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/metrics"
)

// fetch runs one logical request, retrying transient failures with capped
// exponential backoff, and reports the outcome to the Run goroutine.
func (c *Controller) fetch(ctx context.Context, seq uint64, rawQuery string) {
	start := time.Now()
	attempts := 0

	var resp *client.DataResponse

	b := retry.NewExponential(c.opts.RetryBaseDelay)
	b = retry.WithCappedDuration(c.opts.RetryMaxDelay, b)
	b = retry.WithMaxRetries(uint64(c.opts.MaxRetries), b) //nolint:gosec // MaxRetries is non-negative.

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++

		actx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()

		r, err := c.backend.Fetch(actx, rawQuery)
		if err == nil {
			resp = r
			return nil
		}

		if !client.IsTransient(err) || ctx.Err() != nil {
			return err
		}

		c.log.WithError(err).WithFields(logrus.Fields{
			"seq":     seq,
			"attempt": attempts,
		}).Debug("transient fetch failure")

		if attempts <= c.opts.MaxRetries {
			metrics.FetchRetries.Inc()
			send(ctx, c.done, c.retries, retryNotice{seq: seq, attempt: attempts + 1, err: err})
		}

		return retry.RetryableError(err)
	})

	res := fetchResult{
		seq:      seq,
		resp:     resp,
		err:      err,
		attempts: attempts,
		elapsed:  time.Since(start),
	}

	select {
	case c.results <- res:
	case <-c.done:
	}
}

func send[T any](ctx context.Context, done <-chan struct{}, ch chan<- T, v T) {
	select {
	case ch <- v:
	case <-ctx.Done():
	case <-done:
	}
}
