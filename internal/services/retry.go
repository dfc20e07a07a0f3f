package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

// RetryPolicy is a fixed-delay retry budget. MaxRetries counts the attempts
// made after the first one.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultRetryPolicy retries three times, one second apart
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Delay: time.Second}

// retry runs op until it succeeds, returns an error wrapped with
// backoff.Permanent, or the budget is spent. Permanent errors are returned
// unwrapped so callers can match them with errors.Is.
func retry[T any](ctx context.Context, policy RetryPolicy, logger logrus.FieldLogger, what string, op func() (T, error)) (T, error) {
	tries := policy.MaxRetries + 1
	if tries < 1 {
		tries = 1
	}

	attempt := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		return op()
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.Delay)),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.WithFields(logrus.Fields{
				"target":    what,
				"attempt":   attempt,
				"remaining": tries - attempt,
				"retry_in":  next,
			}).WithError(err).Warn("request failed, retrying")
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return res, permanent.Unwrap()
	}
	return res, err
}
