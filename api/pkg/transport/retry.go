package transport

import (
	"time"

	retry "github.com/avast/retry-go/v4"
)

// RetryStrategy selects how reconnect delays grow between attempts.
type RetryStrategy string

const (
	RetryFixed       RetryStrategy = "fixed"
	RetryExponential RetryStrategy = "exponential"
)

const defaultReconnectInterval = 5 * time.Second

// RetryPolicy controls the reconnect loop. The zero value means fixed
// 5 second delays with no attempt cap, which is what the shipped web client
// does; callers needing bounded retries cancel the context instead.
type RetryPolicy struct {
	Strategy RetryStrategy
	Interval time.Duration
	// MaxInterval caps the exponential strategy; 0 means uncapped.
	MaxInterval time.Duration
}

func (p RetryPolicy) norm() RetryPolicy {
	if p.Strategy == "" {
		p.Strategy = RetryFixed
	}
	if p.Interval <= 0 {
		p.Interval = defaultReconnectInterval
	}
	return p
}

func (p RetryPolicy) options() []retry.Option {
	p = p.norm()

	opts := []retry.Option{
		retry.Attempts(0), // retry until success or context cancellation
		retry.Delay(p.Interval),
		retry.LastErrorOnly(true),
	}

	switch p.Strategy {
	case RetryExponential:
		opts = append(opts, retry.DelayType(retry.BackOffDelay))
		if p.MaxInterval > 0 {
			opts = append(opts, retry.MaxDelay(p.MaxInterval))
		}
	default:
		opts = append(opts, retry.DelayType(retry.FixedDelay))
	}

	return opts
}
