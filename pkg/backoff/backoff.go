package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Config holds retry-delay configuration
type Config struct {
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Cap for the computed delay
	Multiplier   float64       // Exponential backoff multiplier (typically 2.0)
	Jitter       bool          // Add random jitter to prevent thundering herd
}

// DefaultConfig returns a default backoff configuration
func DefaultConfig() Config {
	return Config{
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Delay calculates the delay for the given attempt number (0-based) with
// exponential backoff: initialDelay * (multiplier ^ attempt), capped at
// MaxDelay, with optional +-25% jitter.
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	duration := time.Duration(delay)

	if c.Jitter {
		jitter := duration / 4
		duration = duration - jitter + time.Duration(rand.Int63n(int64(jitter)*2+1))
	}

	return duration
}
