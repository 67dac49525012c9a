package resilience

import (
	"testing"
	"time"
)

func TestNormalizeFillsZeroValueFromDefaults(t *testing.T) {
	got := Config{}.normalize()
	def := DefaultConfig()

	if got.RetryMaxAttempts != def.RetryMaxAttempts {
		t.Fatalf("attempts = %d, want %d", got.RetryMaxAttempts, def.RetryMaxAttempts)
	}
	if got.RetryInitialBackoff != def.RetryInitialBackoff {
		t.Fatalf("initial backoff = %v, want %v", got.RetryInitialBackoff, def.RetryInitialBackoff)
	}
	if got.BreakerMinRequests != def.BreakerMinRequests {
		t.Fatalf("breaker min requests = %d, want %d", got.BreakerMinRequests, def.BreakerMinRequests)
	}
	if got.BreakerOpenTimeout != def.BreakerOpenTimeout {
		t.Fatalf("breaker open timeout = %v, want %v", got.BreakerOpenTimeout, def.BreakerOpenTimeout)
	}
}

func TestNormalizeClampsInvertedBackoffWindow(t *testing.T) {
	got := Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 500 * time.Millisecond,
		RetryMaxBackoff:     100 * time.Millisecond,
		RetryMultiplier:     0.5,
	}.normalize()

	if got.RetryMaxBackoff != got.RetryInitialBackoff {
		t.Fatalf("max backoff = %v, want raised to initial %v", got.RetryMaxBackoff, got.RetryInitialBackoff)
	}
	if got.RetryMultiplier < 1 {
		t.Fatalf("multiplier = %v, want >= 1", got.RetryMultiplier)
	}
}
