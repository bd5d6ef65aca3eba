package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidSessionTimeout = errors.New("session: invalid session timeout")
	ErrInvalidKeepAlive      = errors.New("session: invalid keep-alive interval")
	ErrInvalidRequestTimeout = errors.New("session: invalid request timeout")
	ErrInvalidBackoff        = errors.New("session: invalid backoff")
	ErrInvalidMaxPending     = errors.New("session: invalid max pending")
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config holds the client-side session timing.
type Config struct {
	// SessionTimeout is requested at Register. The cluster may choose a
	// different value and reports it in the response.
	SessionTimeout    time.Duration
	KeepAliveInterval time.Duration
	RequestTimeout    time.Duration
	// MaxPending bounds the outbox; zero means unbounded.
	MaxPending int
	Backoff    BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		SessionTimeout:    5 * time.Second,
		KeepAliveInterval: 2500 * time.Millisecond,
		RequestTimeout:    5 * time.Second,
		MaxPending:        1024,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// Validate checks that keep-alives fit inside the session lease.
func (c Config) Validate() error {
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSessionTimeout, c.SessionTimeout)
	}
	if c.SessionTimeout%time.Millisecond != 0 {
		return fmt.Errorf("%w: %s is not a whole number of milliseconds", ErrInvalidSessionTimeout, c.SessionTimeout)
	}
	if c.KeepAliveInterval <= 0 || c.KeepAliveInterval >= c.SessionTimeout {
		return fmt.Errorf("%w: %s must be positive and below session timeout %s", ErrInvalidKeepAlive, c.KeepAliveInterval, c.SessionTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequestTimeout, c.RequestTimeout)
	}
	if c.MaxPending < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxPending, c.MaxPending)
	}
	if c.Backoff.InitialDelay < 0 || c.Backoff.MaxDelay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidBackoff)
	}
	if c.Backoff.MaxDelay > 0 && c.Backoff.MaxDelay < c.Backoff.InitialDelay {
		return fmt.Errorf("%w: max_delay %s below initial_delay %s", ErrInvalidBackoff, c.Backoff.MaxDelay, c.Backoff.InitialDelay)
	}
	return nil
}

// TimeoutMillis is SessionTimeout in the unit RegisterRequest carries.
func (c Config) TimeoutMillis() int64 {
	return c.SessionTimeout.Milliseconds()
}
