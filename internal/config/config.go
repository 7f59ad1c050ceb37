// Package config loads the on-disk and environment-supplied settings a
// batch is created from. It never touches the orchestrator's scheduling
// state directly: BatchConfig() converts the loaded document into the
// frozen orchestrator.BatchConfig a new batch is constructed with.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"ytbatch/internal/app"
	"ytbatch/internal/orchestrator"
	"ytbatch/internal/retry"
	"ytbatch/internal/task"
)

// DefaultsConfig holds the per-task defaults applied when a caller (CLI,
// HTTP, GUI) doesn't specify quality/format/output explicitly.
type DefaultsConfig struct {
	Quality         string `json:"quality"`
	Format          string `json:"format"`
	OutputDirectory string `json:"outputDirectory"`
	NamingPattern   string `json:"namingPattern"`
}

// Config is the on-disk settings document. The concurrency/retry/progress
// fields map 1:1 onto orchestrator.BatchConfig; BatchConfig() does the
// conversion and unit translation (seconds/ms -> time.Duration).
type Config struct {
	Defaults DefaultsConfig `json:"defaults"`

	MaxConcurrent            int     `json:"maxConcurrent"`
	RetryEnabled             bool    `json:"retryEnabled"`
	MaxRetries               int     `json:"maxRetries"`
	RetryBaseDelaySeconds     float64 `json:"retryBaseDelaySeconds"`
	RetryStrategy             string  `json:"retryStrategy"` // exponential | fixed | immediate
	StopOnFirstError          bool    `json:"stopOnFirstError"`
	ProgressNotifyIntervalMs  int     `json:"progressNotifyIntervalMs"`

	RateLimitBytesPerSecond int64 `json:"rateLimitBytesPerSecond"` // loaded and env-overridable; no downloader reads it, so downloads are not throttled at any value

	mu       sync.RWMutex
	filePath string
}

// Default returns the settings document matching
// orchestrator.DefaultBatchConfig(), ready to Save() on first run. The
// default output directory is app.Paths.Downloads when it can be resolved.
func Default() *Config {
	outputDirectory := ""
	if p, err := app.GetPaths(); err == nil {
		outputDirectory = p.Downloads
	}
	return &Config{
		Defaults: DefaultsConfig{
			Quality:         task.Quality[0],
			Format:          task.Format[0],
			OutputDirectory: outputDirectory,
			NamingPattern:   "%(title)s.%(ext)s",
		},
		MaxConcurrent:            3,
		RetryEnabled:             true,
		MaxRetries:               3,
		RetryBaseDelaySeconds:    2,
		RetryStrategy:            string(retry.Exponential),
		StopOnFirstError:         false,
		ProgressNotifyIntervalMs: 150,
		RateLimitBytesPerSecond:  0,
	}
}

// Load reads settings.json from configDir, applies environment overrides,
// and returns it. A missing or corrupted file is not an error: it yields
// Default() with the environment overrides applied.
func Load(configDir string) (*Config, error) {
	filePath := filepath.Join(configDir, "settings.json")
	cfg := Default()
	cfg.filePath = filePath

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		// Corrupted file: fall back to defaults rather than fail the batch.
		cfg = Default()
		cfg.filePath = filePath
		cfg.applyEnvOverrides()
		return cfg, nil
	}
	cfg.filePath = filePath

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets CI/dev/staging tweak concurrency and retry
// behavior without editing settings.json.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("YTBATCH_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrent = n
		}
	}
	if v := os.Getenv("YTBATCH_RETRY_STRATEGY"); v != "" {
		c.RetryStrategy = v
	}
	if v := os.Getenv("YTBATCH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("YTBATCH_STOP_ON_FIRST_ERROR"); v != "" {
		c.StopOnFirstError = v == "1" || v == "true"
	}
	if v := os.Getenv("YTBATCH_RATE_LIMIT_BPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.RateLimitBytesPerSecond = n
		}
	}
}

// Save writes the current config to disk.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.filePath, data, 0644)
}

// Update executes fn with the mutex held, for atomic read-modify-write
// changes from a CLI/HTTP settings command.
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

// Get returns a copy of the config safe to read without holding a lock.
func (c *Config) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Config{
		Defaults:                 c.Defaults,
		MaxConcurrent:            c.MaxConcurrent,
		RetryEnabled:             c.RetryEnabled,
		MaxRetries:               c.MaxRetries,
		RetryBaseDelaySeconds:    c.RetryBaseDelaySeconds,
		RetryStrategy:            c.RetryStrategy,
		StopOnFirstError:         c.StopOnFirstError,
		ProgressNotifyIntervalMs: c.ProgressNotifyIntervalMs,
		RateLimitBytesPerSecond:  c.RateLimitBytesPerSecond,
	}
}

// BatchConfig converts the loaded document into the frozen
// orchestrator.BatchConfig a new batch is constructed with.
func (c *Config) BatchConfig() orchestrator.BatchConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return orchestrator.BatchConfig{
		MaxConcurrent:          c.MaxConcurrent,
		RetryEnabled:           c.RetryEnabled,
		MaxRetries:             c.MaxRetries,
		RetryBaseDelay:         time.Duration(c.RetryBaseDelaySeconds * float64(time.Second)),
		RetryStrategy:          retry.Strategy(c.RetryStrategy),
		StopOnFirstError:       c.StopOnFirstError,
		ProgressNotifyInterval: time.Duration(c.ProgressNotifyIntervalMs) * time.Millisecond,
	}
}

// TaskConfig builds the default task.TaskConfig for a VideoRef that doesn't
// override quality/format/output explicitly.
func (c *Config) TaskConfig() (task.TaskConfig, error) {
	c.mu.RLock()
	d := c.Defaults
	c.mu.RUnlock()
	return task.NewTaskConfig(d.Quality, d.Format, d.OutputDirectory, d.NamingPattern)
}
