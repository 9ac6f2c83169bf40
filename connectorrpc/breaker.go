package connectorrpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"connectrpc.com/connect"
)

// ErrCircuitOpen is returned, wrapped in a CodeUnavailable Connect error,
// when a Breaker refuses a call.
var ErrCircuitOpen = errors.New("connector circuit open")

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed passes calls through and counts consecutive failures.
	BreakerClosed BreakerState = iota

	// BreakerOpen refuses calls until the cooldown elapses.
	BreakerOpen

	// BreakerHalfOpen lets probe calls through; enough successes close the
	// breaker and any failure reopens it.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("BreakerState(%d)", int(s))
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes that
	// closes it. Default: 2
	SuccessThreshold int

	// Cooldown is how long the breaker stays open. Default: 10s
	Cooldown time.Duration

	// IsFailure classifies call errors. Rejections such as unsupported
	// operations or missing request ids are the caller's fault and do not
	// count. Worker failures do. Default: isServerFailure.
	IsFailure func(error) bool

	// OnStateChange, if set, is called after every transition.
	OnStateChange func(pluginID string, from, to BreakerState)

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.Cooldown == 0 {
		c.Cooldown = 10 * time.Second
	}
	if c.IsFailure == nil {
		c.IsFailure = isServerFailure
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Breaker keeps a host from calling a connector that keeps failing. With a
// HealthSink it also refuses calls while the connector's last pushed health
// is FAILED, so a connector that announced its own shutdown is not called.
type Breaker struct {
	pluginID string
	sink     *HealthSink
	cfg      BreakerConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

// NewBreaker creates a closed breaker for pluginID. sink may be nil.
func NewBreaker(pluginID string, sink *HealthSink, cfg BreakerConfig) *Breaker {
	return &Breaker{
		pluginID: pluginID,
		sink:     sink,
		cfg:      cfg.withDefaults(),
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	if b.sink != nil && !b.sink.ShouldRoute(b.pluginID) {
		return connect.NewError(connect.CodeUnavailable,
			fmt.Errorf("%w: %s reported FAILED health", ErrCircuitOpen, b.pluginID))
	}

	b.mu.Lock()
	from := b.state
	if b.state == BreakerOpen {
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.Cooldown {
			b.mu.Unlock()
			return connect.NewError(connect.CodeUnavailable,
				fmt.Errorf("%w: %s", ErrCircuitOpen, b.pluginID))
		}
		b.state = BreakerHalfOpen
		b.failures, b.successes = 0, 0
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return nil
}

// Record feeds the outcome of an allowed call.
func (b *Breaker) Record(err error) {
	failed := b.cfg.IsFailure(err)

	b.mu.Lock()
	from := b.state
	switch b.state {
	case BreakerClosed:
		if failed {
			b.failures++
			if b.failures >= b.cfg.FailureThreshold {
				b.open()
			}
		} else {
			b.failures = 0
		}
	case BreakerHalfOpen:
		if failed {
			b.open()
		} else {
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.state = BreakerClosed
				b.failures, b.successes = 0, 0
			}
		}
	case BreakerOpen:
		if failed {
			b.openedAt = b.cfg.Now()
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// open trips the breaker. Caller holds mu.
func (b *Breaker) open() {
	b.state = BreakerOpen
	b.openedAt = b.cfg.Now()
	b.successes = 0
}

func (b *Breaker) notify(from, to BreakerState) {
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.pluginID, from, to)
	}
}

// Interceptor returns a Connect unary interceptor guarded by b.
func (b *Breaker) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if err := b.Allow(); err != nil {
				return nil, err
			}
			resp, err := next(ctx, req)
			b.Record(err)
			return resp, err
		}
	}
}
