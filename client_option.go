package shardtree

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/lni/dragonboat/v4/logger"
)

type ClientOption func(*retryClient) error

// WithRetries sets the total number of attempts per call, the final attempt
// included.
func WithRetries(n int) ClientOption {
	return func(c *retryClient) error {
		if n < 1 {
			return fmt.Errorf("retries must be at least 1, got %d", n)
		}
		c.retries = n
		return nil
	}
}

// WithRetryDelay inserts a pause between attempts. The default is zero,
// retrying immediately.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *retryClient) error {
		c.delay = d
		return nil
	}
}

func WithClock(clk clock.Clock) ClientOption {
	return func(c *retryClient) error {
		c.clock = clk
		return nil
	}
}

func WithLogger(log logger.ILogger) ClientOption {
	return func(c *retryClient) error {
		c.log = log
		return nil
	}
}
