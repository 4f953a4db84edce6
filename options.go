package smartcube

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Option configures Hub behavior.
type Option func(*config)

type config struct {
	logger         *logrus.Logger
	backoffMin     time.Duration
	backoffMax     time.Duration
	connectTimeout time.Duration
	commandTimeout time.Duration
	eventBuffer    int
}

func defaultConfig() *config {
	return &config{
		logger:         logrus.StandardLogger(),
		backoffMin:     time.Second,
		backoffMax:     60 * time.Second,
		connectTimeout: 20 * time.Second,
		commandTimeout: 3 * time.Second,
		eventBuffer:    256,
	}
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithBackoff sets the reconnect backoff bounds. Attempts start at min and
// double up to max.
func WithBackoff(min, max time.Duration) Option {
	return func(c *config) {
		c.backoffMin = min
		c.backoffMax = max
	}
}

// WithConnectTimeout bounds a single connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *config) {
		c.connectTimeout = d
	}
}

// WithCommandTimeout sets how long SendCommand waits for a device reply
// before emitting a timeout event.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *config) {
		c.commandTimeout = d
	}
}

// WithEventBuffer sets the event channel capacity. When the consumer
// falls behind, the oldest events are dropped.
func WithEventBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.eventBuffer = n
		}
	}
}
