package connectorrpc

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy configures retry behavior for RPC calls.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (1 = no retries).
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	// Default: 100ms
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff delay.
	// Default: 2s
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	// Default: 2.0
	BackoffMultiplier float64

	// IsRetryable determines if an error should trigger a retry.
	// If nil, uses defaultIsRetryable (unavailable, resource exhausted, internal).
	// Client.Handle narrows it to transport failures for requests that
	// change records.
	IsRetryable func(error) bool
}

// DefaultRetryPolicy returns a retry policy with sensible defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		IsRetryable:       defaultIsRetryable,
	}
}

// defaultIsRetryable determines if an error is retryable.
// Retries: unavailable, resource exhausted, internal errors
// Does not retry: invalid argument, not found, unimplemented, cancelled,
// and failures the connector's worker returned
func defaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if remoteReason(err) == reasonHandlerFailed {
		return false
	}
	return isServerFailure(err)
}

// isServerFailure reports whether err is a fault on the serving side rather
// than a rejection of the caller's request.
func isServerFailure(err error) bool {
	switch connect.CodeOf(err) {
	case connect.CodeUnavailable,
		connect.CodeResourceExhausted,
		connect.CodeInternal,
		connect.CodeUnknown,
		connect.CodeDeadlineExceeded:
		return true
	default:
		return false
	}
}

// isTransportFailure reports whether err means the request never reached
// the connector's worker.
func isTransportFailure(err error) bool {
	switch connect.CodeOf(err) {
	case connect.CodeUnavailable, connect.CodeResourceExhausted:
		return true
	default:
		return false
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff == 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff == 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.BackoffMultiplier == 0 {
		p.BackoffMultiplier = d.BackoffMultiplier
	}
	if p.IsRetryable == nil {
		p.IsRetryable = d.IsRetryable
	}
	return p
}

// forWrites narrows p to failures where the request never reached the
// worker. A timed-out Create may have stored a record, so it is not resent.
func (p RetryPolicy) forWrites() RetryPolicy {
	p = p.withDefaults()
	retryable := p.IsRetryable
	p.IsRetryable = func(err error) bool {
		return isTransportFailure(err) && retryable(err)
	}
	return p
}

// backOff builds the exponential schedule for one call.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialBackoff
	eb.MaxInterval = p.MaxBackoff
	eb.Multiplier = p.BackoffMultiplier
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
}

// RetryInterceptor returns a Connect unary interceptor that retries failed calls.
func RetryInterceptor(policy RetryPolicy) connect.UnaryInterceptorFunc {
	policy = policy.withDefaults()

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			var resp connect.AnyResponse
			err := backoff.Retry(func() error {
				r, err := next(ctx, req)
				if err != nil {
					if !policy.IsRetryable(err) {
						return backoff.Permanent(err)
					}
					return err
				}
				resp = r
				return nil
			}, policy.backOff(ctx))
			if err != nil {
				return nil, err
			}
			return resp, nil
		}
	}
}
