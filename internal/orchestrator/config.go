package orchestrator

import (
	"time"

	"ytbatch/internal/retry"
)

// BatchConfig is frozen for the lifetime of one batch. internal/config loads
// the user/environment-facing version of these fields and produces this
// struct; the orchestrator core never reads a config file itself.
type BatchConfig struct {
	MaxConcurrent          int
	RetryEnabled           bool
	MaxRetries             int
	RetryBaseDelay         time.Duration
	RetryStrategy          retry.Strategy
	StopOnFirstError       bool
	ProgressNotifyInterval time.Duration
}

// DefaultBatchConfig returns the defaults named in §3: max_concurrent=3,
// retry_enabled=true, max_retries=3, retry_base_delay=2s,
// stop_on_first_error=false, progress_notify_interval=150ms.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrent:          3,
		RetryEnabled:           true,
		MaxRetries:             3,
		RetryBaseDelay:         2 * time.Second,
		RetryStrategy:          retry.Exponential,
		StopOnFirstError:       false,
		ProgressNotifyInterval: 150 * time.Millisecond,
	}
}

// normalize applies the floor values the spec requires (max_concurrent ≥ 1,
// max_retries ≥ 0) without silently accepting a zero/negative config.
func (c BatchConfig) normalize() BatchConfig {
	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.ProgressNotifyInterval <= 0 {
		c.ProgressNotifyInterval = 150 * time.Millisecond
	}
	return c
}

func (c BatchConfig) retryPolicy() retry.Policy {
	return retry.New(c.RetryEnabled, c.MaxRetries, c.RetryBaseDelay, c.RetryStrategy)
}
