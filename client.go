package shardtree

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/lni/dragonboat/v4/logger"
)

// TopologyClient is the boundary to the remote topology service. Every call
// may fail transiently; wrap implementations with NewRetryClient for bounded
// local recovery.
type TopologyClient interface {
	GetForwardings(ctx context.Context) ([]Forwarding, error)
	ListDownwardLinks(ctx context.Context, parent ShardId) ([]LinkInfo, error)
	GetShard(ctx context.Context, id ShardId) (ShardInfo, error)
	ReloadForwardings(ctx context.Context) error
}

// The retrying topology client
type retryClient struct {
	inner   TopologyClient
	clock   clock.Clock
	log     logger.ILogger
	retries int
	delay   time.Duration
}

// NewRetryClient decorates a topology client with a bounded retry policy:
// 3 total attempts per call with no delay unless configured otherwise.
// Exhausting the attempts propagates the last error.
func NewRetryClient(inner TopologyClient, opts ...ClientOption) (c *retryClient, err error) {
	c = &retryClient{
		inner:   inner,
		clock:   clock.New(),
		log:     logger.GetLogger(magicPrefix),
		retries: 3,
	}
	for _, fn := range opts {
		if err = fn(c); err != nil {
			return
		}
	}
	return
}

func retry[T any](ctx context.Context, c *retryClient, op string, fn func() (T, error)) (res T, err error) {
	for i := 0; i < c.retries; i++ {
		res, err = fn()
		if err == nil {
			return
		}
		if i+1 < c.retries {
			c.log.Warningf(`Retrying %s after error: %v`, op, err)
			if c.delay > 0 {
				select {
				case <-ctx.Done():
					err = ctx.Err()
					return
				case <-c.clock.After(c.delay):
				}
			}
		}
	}
	err = fmt.Errorf("%s failed after %d attempts: %w", op, c.retries, err)
	return
}

func (c *retryClient) GetForwardings(ctx context.Context) ([]Forwarding, error) {
	return retry(ctx, c, `GetForwardings`, func() ([]Forwarding, error) {
		return c.inner.GetForwardings(ctx)
	})
}

func (c *retryClient) ListDownwardLinks(ctx context.Context, parent ShardId) ([]LinkInfo, error) {
	return retry(ctx, c, `ListDownwardLinks`, func() ([]LinkInfo, error) {
		return c.inner.ListDownwardLinks(ctx, parent)
	})
}

func (c *retryClient) GetShard(ctx context.Context, id ShardId) (ShardInfo, error) {
	return retry(ctx, c, `GetShard`, func() (ShardInfo, error) {
		return c.inner.GetShard(ctx, id)
	})
}

func (c *retryClient) ReloadForwardings(ctx context.Context) (err error) {
	_, err = retry(ctx, c, `ReloadForwardings`, func() (struct{}, error) {
		return struct{}{}, c.inner.ReloadForwardings(ctx)
	})
	return
}
