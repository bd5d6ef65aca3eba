package session

import (
	"math"
	"math/rand"
	"time"
)

// NextBackoffDelay returns the wait before resend number attempt (1-based).
// Jitter scales the delay by a factor in [0.5, 1.5).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	growth := math.Max(cfg.Multiplier, 1.0)
	delay := float64(cfg.InitialDelay)
	if attempt > 1 {
		delay *= math.Pow(growth, float64(attempt-1))
	}
	if cfg.MaxDelay > 0 {
		delay = math.Min(delay, float64(cfg.MaxDelay))
	}
	if cfg.Jitter {
		scale := 0.5
		if rng != nil {
			scale += rng.Float64()
		}
		delay *= scale
	}
	return time.Duration(delay)
}

// RetryAt is when p may be resent. An operation never sent is due at once.
func RetryAt(p Pending, cfg BackoffConfig, rng *rand.Rand) time.Time {
	if p.Attempts == 0 {
		return p.QueuedAt
	}
	return p.LastAttemptAt.Add(NextBackoffDelay(cfg, p.Attempts, rng))
}

// Due lists the pending operations whose backoff has elapsed at now, lowest
// sequence first. Callers resend them in that order.
func (o *Outbox) Due(now time.Time, cfg BackoffConfig, rng *rand.Rand) []Pending {
	var due []Pending
	for _, p := range o.List() {
		if !RetryAt(p, cfg, rng).After(now) {
			due = append(due, p)
		}
	}
	return due
}
