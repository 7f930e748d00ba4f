package ratelimit

import "time"

// Stats is a snapshot of limiter activity.
type Stats struct {
	// Limiters is the number of live per-key buckets.
	Limiters int
	// Waits counts calls to Wait.
	Waits int64
	// Rejected counts waits aborted by their context.
	Rejected int64
	// TotalWait is the cumulative time spent waiting for tokens.
	TotalWait time.Duration
}

// Stats returns current counters.
func (l *Limiter) Stats() Stats {
	l.mu.RLock()
	n := len(l.limiters)
	l.mu.RUnlock()

	return Stats{
		Limiters:  n,
		Waits:     l.waits.Load(),
		Rejected:  l.rejected.Load(),
		TotalWait: time.Duration(l.waited.Load()),
	}
}
