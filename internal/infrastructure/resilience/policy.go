package resilience

import "time"

// Config tunes retries and circuit breaking for calls to translation
// backends, model runtimes, Qdrant and NATS. Zero fields take the defaults below.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	// AttemptTimeout bounds a single attempt; zero leaves it to the caller's context.
	AttemptTimeout time.Duration

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

const (
	defaultMaxAttempts      = 3
	defaultInitialBackoff   = 100 * time.Millisecond
	defaultMaxBackoff       = 400 * time.Millisecond
	defaultMultiplier       = 2.0
	defaultMinRequests      = 10
	defaultFailureRatio     = 0.5
	defaultOpenTimeout      = 30 * time.Second
	defaultHalfOpenMaxCalls = 2
)

func orDefault[T int | uint32 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func (c Config) normalize() Config {
	c.RetryMaxAttempts = orDefault(c.RetryMaxAttempts, defaultMaxAttempts)
	c.RetryInitialBackoff = orDefault(c.RetryInitialBackoff, defaultInitialBackoff)
	c.RetryMaxBackoff = max(orDefault(c.RetryMaxBackoff, defaultMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = defaultMultiplier
	}
	c.AttemptTimeout = max(c.AttemptTimeout, 0)

	c.BreakerMinRequests = orDefault(c.BreakerMinRequests, defaultMinRequests)
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = defaultFailureRatio
	}
	c.BreakerOpenTimeout = orDefault(c.BreakerOpenTimeout, defaultOpenTimeout)
	c.BreakerHalfOpenMaxCalls = orDefault(c.BreakerHalfOpenMaxCalls, defaultHalfOpenMaxCalls)
	return c
}

// delay is the wait after the given failed attempt (1-based).
func (c Config) delay(attempt int) time.Duration {
	d := c.RetryInitialBackoff
	for i := 1; i < attempt && d < c.RetryMaxBackoff; i++ {
		d = time.Duration(float64(d) * c.RetryMultiplier)
	}
	return min(d, c.RetryMaxBackoff)
}
