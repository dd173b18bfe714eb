package resilience

import "time"

// Retry bounds the exponential backoff loop around a single call.
type Retry struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// Breaker trips once at least MinRequests calls were seen and FailureRatio of them failed.
type Breaker struct {
	Enabled          bool
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

type Config struct {
	Retry   Retry
	Breaker Breaker
	// Operations replaces Retry for the named operations. Zero fields fall back to Retry.
	Operations map[string]Retry
}

// NoRetry runs an operation exactly once. Interactive calls such as chat answers use it.
func NoRetry() Retry {
	return Retry{MaxAttempts: 1}
}

func DefaultConfig() Config {
	return Config{
		Retry: Retry{
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     400 * time.Millisecond,
			Multiplier:     2.0,
		},
		Breaker: Breaker{
			Enabled:          true,
			MinRequests:      10,
			FailureRatio:     0.5,
			OpenTimeout:      30 * time.Second,
			HalfOpenMaxCalls: 2,
		},
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := Config{
		Retry:      c.Retry.withDefaults(def.Retry),
		Breaker:    c.Breaker.withDefaults(def.Breaker),
		Operations: make(map[string]Retry, len(c.Operations)),
	}
	for op, r := range c.Operations {
		out.Operations[op] = r.withDefaults(out.Retry)
	}
	return out
}

func (c Config) retryFor(operation string) Retry {
	if r, ok := c.Operations[operation]; ok {
		return r
	}
	return c.Retry
}

func (r Retry) withDefaults(def Retry) Retry {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = def.MaxAttempts
	}
	if r.InitialBackoff <= 0 {
		r.InitialBackoff = def.InitialBackoff
	}
	if r.MaxBackoff <= 0 {
		r.MaxBackoff = def.MaxBackoff
	}
	if r.MaxBackoff < r.InitialBackoff {
		r.MaxBackoff = r.InitialBackoff
	}
	if r.Multiplier < 1.0 {
		r.Multiplier = def.Multiplier
	}
	return r
}

// backoff returns the wait after the given failed attempt, counting from 1.
func (r Retry) backoff(attempt int) time.Duration {
	wait := float64(r.InitialBackoff)
	for i := 1; i < attempt; i++ {
		wait *= r.Multiplier
		if time.Duration(wait) >= r.MaxBackoff {
			return r.MaxBackoff
		}
	}
	return time.Duration(wait)
}

func (b Breaker) withDefaults(def Breaker) Breaker {
	if b.MinRequests == 0 {
		b.MinRequests = def.MinRequests
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		b.FailureRatio = def.FailureRatio
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = def.OpenTimeout
	}
	if b.HalfOpenMaxCalls == 0 {
		b.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return b
}
