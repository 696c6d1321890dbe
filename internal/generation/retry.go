package generation

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Default local retry budget for transient model failures
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond
	retryJitterPct    = 25
)

// RetryPolicy bounds how often a single sub-request is retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy returns two retries starting at half a second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultRetryDelay}
}

func (p RetryPolicy) backoff() retry.Backoff {
	delay := p.BaseDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	b := retry.NewExponential(delay)
	b = retry.WithJitterPercent(retryJitterPct, b)
	return retry.WithMaxRetries(uint64(retries), b)
}

// complete calls the generator, retrying rate limits, timeouts and
// unavailability with exponential backoff. Other errors return immediately.
func complete(
	ctx context.Context,
	gen Generator,
	policy RetryPolicy,
	logger *slog.Logger,
	req Request,
) (string, error) {
	var out string
	attempt := 0
	err := retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		attempt++
		text, err := gen.Complete(ctx, req)
		if err == nil {
			out = text
			return nil
		}
		if IsTransient(err) && ctx.Err() == nil {
			logger.WarnContext(ctx, "transient generator failure",
				"attempt", attempt,
				"max_attempts", policy.MaxRetries+1,
				"error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
