package pulse

import (
	"time"

	"go.uber.org/zap"
)

// Default retry configuration.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// RetryConfig is the bus-wide retry policy for retry-enabled listeners.
// It is read at invocation time: changes apply to all subsequent retried
// invocations, never to in-flight ones.
type RetryConfig struct {
	// MaxRetries is the total number of attempts, including the first.
	MaxRetries int

	// RetryDelay scales the linear backoff: the pause before attempt k is
	// (k-1) * RetryDelay.
	RetryDelay time.Duration
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// BusOption configures a Bus.
type BusOption func(*busConfig)

// busConfig contains construction-time configuration for a Bus.
type busConfig struct {
	historyLimit int
	retry        RetryConfig
	logger       *zap.Logger
}

// defaultBusConfig returns sensible default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		historyLimit: DefaultHistoryLimit,
		retry:        DefaultRetryConfig(),
		logger:       nil,
	}
}

// WithHistoryLimit caps the number of history entries kept per event name.
func WithHistoryLimit(limit int) BusOption {
	return func(c *busConfig) {
		if limit > 0 {
			c.historyLimit = limit
		}
	}
}

// WithRetryConfig sets the initial retry policy.
func WithRetryConfig(cfg RetryConfig) BusOption {
	return func(c *busConfig) {
		merged := DefaultRetryConfig()
		merged.merge(cfg)
		c.retry = merged
	}
}

// WithLogger sets the logger used for debug output. Without it, SetDebug(true)
// installs a zap development logger.
func WithLogger(logger *zap.Logger) BusOption {
	return func(c *busConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// merge overlays the present (non-zero) fields of other onto c.
func (c *RetryConfig) merge(other RetryConfig) {
	if other.MaxRetries > 0 {
		c.MaxRetries = other.MaxRetries
	}
	if other.RetryDelay > 0 {
		c.RetryDelay = other.RetryDelay
	}
}
