// Package retry implements the Retry Policy: given an error_kind and the
// current retry_count, decide whether a failed task gets another attempt and
// how long to wait before re-admitting it.
package retry

import (
	"math/rand"
	"time"

	apperr "ytbatch/internal/errors"
)

// Strategy selects how the delay between attempts grows.
type Strategy string

const (
	// Exponential is the default: base * 2^retry_count, jittered and capped.
	Exponential Strategy = "exponential"
	// Fixed waits retry_base_delay between every attempt.
	Fixed Strategy = "fixed"
	// Immediate re-admits with no delay; used in tests for speed.
	Immediate Strategy = "immediate"
)

// maxDelay caps backoff regardless of strategy or retry_count.
const maxDelay = 60 * time.Second

// Policy decides retry eligibility and delay. The zero value is not usable;
// construct with New.
type Policy struct {
	Enabled    bool
	MaxRetries int
	BaseDelay  time.Duration
	Strategy   Strategy
}

// New builds a Policy. strategy defaults to Exponential if empty.
func New(enabled bool, maxRetries int, baseDelay time.Duration, strategy Strategy) Policy {
	if strategy == "" {
		strategy = Exponential
	}
	return Policy{
		Enabled:    enabled,
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		Strategy:   strategy,
	}
}

// Decision is the ShouldRetry output: whether to retry and, if so, how long
// to wait before re-enqueuing.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// ShouldRetry applies the policy in §4.5: disabled policies and exhausted
// budgets never retry; kind classifies the rest. Network, Filesystem, and
// Unknown are retried; every other kind is terminal.
func (p Policy) ShouldRetry(kind apperr.ErrorKind, retryCount int) Decision {
	if !p.Enabled {
		return Decision{Retry: false}
	}
	if retryCount >= p.MaxRetries {
		return Decision{Retry: false}
	}
	if !p.retryableKind(kind) {
		return Decision{Retry: false}
	}
	return Decision{Retry: true, Delay: p.delay(retryCount)}
}

// retryableKind mirrors apperr.ErrorKind.Retryable() plus KindUnknown, which
// the retry policy treats as retryable even though it is not a confirmed
// transient condition — an unclassified Downloader failure deserves one more
// chance before the task is given up on.
func (p Policy) retryableKind(kind apperr.ErrorKind) bool {
	return kind.Retryable() || kind == apperr.KindUnknown
}

func (p Policy) delay(retryCount int) time.Duration {
	switch p.Strategy {
	case Immediate:
		return 0
	case Fixed:
		return capDelay(p.BaseDelay)
	default: // Exponential
		backoff := p.BaseDelay << retryCount
		jittered := jitter(backoff)
		return capDelay(jittered)
	}
}

// jitter applies ±20% uniform jitter around d.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := float64(d) * 0.2
	offset := (rand.Float64()*2 - 1) * spread
	return d + time.Duration(offset)
}

func capDelay(d time.Duration) time.Duration {
	if d > maxDelay {
		return maxDelay
	}
	if d < 0 {
		return 0
	}
	return d
}
