package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/HuyNguyen260398/bob/pkg/slogx"
)

// RetryPolicy bounds the retry loop around a provider call. Delays grow
// exponentially from BaseDelay up to MaxDelay with jitter applied by the
// backoff implementation.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries including the first one.
	MaxAttempts uint64

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the wait between retries.
	MaxDelay time.Duration
}

// DefaultRetryPolicy retries transient failures up to three times in total.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
	}
}

// Retrying decorates a provider with the given retry policy. Only
// transient failures are retried; permanent errors and context
// cancellation surface immediately.
func Retrying(inner Provider, policy RetryPolicy) Provider {
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy()
	}
	return &retrying{inner: inner, policy: policy}
}

type retrying struct {
	inner  Provider
	policy RetryPolicy
}

func (r *retrying) Completion(ctx context.Context, params CompletionParams) (Completion, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.policy.BaseDelay
	eb.MaxInterval = r.policy.MaxDelay
	eb.MaxElapsedTime = 0

	var attempt uint64
	op := func() (Completion, error) {
		attempt++
		completion, err := r.inner.Completion(ctx, params)
		if err == nil {
			return completion, nil
		}
		if !IsTransient(err) || attempt >= r.policy.MaxAttempts {
			return Completion{}, backoff.Permanent(err)
		}
		slog.Warn("retrying provider call",
			slog.Uint64("attempt", attempt),
			slog.Uint64("max_attempts", r.policy.MaxAttempts),
			slogx.Error(err),
		)
		return Completion{}, err
	}

	return backoff.RetryWithData(op, backoff.WithContext(eb, ctx))
}
