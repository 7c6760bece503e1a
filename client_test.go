package shardtree

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("transient failure")

// flakyTopology fails the first n calls then delegates.
type flakyTopology struct {
	mutex    sync.Mutex
	failures int
	calls    int
	inner    TopologyClient
}

func (c *flakyTopology) fail() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.calls++
	return c.calls <= c.failures
}

func (c *flakyTopology) callCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.calls
}

func (c *flakyTopology) GetForwardings(ctx context.Context) ([]Forwarding, error) {
	if c.fail() {
		return nil, errFlaky
	}
	return c.inner.GetForwardings(ctx)
}

func (c *flakyTopology) ListDownwardLinks(ctx context.Context, parent ShardId) ([]LinkInfo, error) {
	if c.fail() {
		return nil, errFlaky
	}
	return c.inner.ListDownwardLinks(ctx, parent)
}

func (c *flakyTopology) GetShard(ctx context.Context, id ShardId) (ShardInfo, error) {
	if c.fail() {
		return ShardInfo{}, errFlaky
	}
	return c.inner.GetShard(ctx, id)
}

func (c *flakyTopology) ReloadForwardings(ctx context.Context) error {
	if c.fail() {
		return errFlaky
	}
	return c.inner.ReloadForwardings(ctx)
}

func TestRetryClient(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryTopology()
	mem.SetForwarding(Forwarding{TableID: "status", BaseID: 0, ShardID: ShardId{Host: "host1", Name: "status_0001"}})
	t.Run("recovers-within-cap", func(t *testing.T) {
		flaky := &flakyTopology{failures: 2, inner: mem}
		c, err := NewRetryClient(flaky, WithLogger(nullLogger{}))
		require.Nil(t, err)
		forwardings, err := c.GetForwardings(ctx)
		require.Nil(t, err)
		assert.Len(t, forwardings, 1)
		assert.Equal(t, 3, flaky.callCount())
	})
	t.Run("exhaustion-propagates", func(t *testing.T) {
		flaky := &flakyTopology{failures: 3, inner: mem}
		c, err := NewRetryClient(flaky, WithLogger(nullLogger{}))
		require.Nil(t, err)
		_, err = c.GetForwardings(ctx)
		require.ErrorIs(t, err, errFlaky)
		assert.Equal(t, 3, flaky.callCount())
	})
	t.Run("configurable-cap", func(t *testing.T) {
		flaky := &flakyTopology{failures: 3, inner: mem}
		c, err := NewRetryClient(flaky, WithRetries(5), WithLogger(nullLogger{}))
		require.Nil(t, err)
		_, err = c.GetForwardings(ctx)
		require.Nil(t, err)
		assert.Equal(t, 4, flaky.callCount())
	})
	t.Run("single-attempt", func(t *testing.T) {
		flaky := &flakyTopology{failures: 1, inner: mem}
		c, err := NewRetryClient(flaky, WithRetries(1), WithLogger(nullLogger{}))
		require.Nil(t, err)
		_, err = c.GetForwardings(ctx)
		require.ErrorIs(t, err, errFlaky)
		assert.Equal(t, 1, flaky.callCount())
	})
	t.Run("invalid-retries", func(t *testing.T) {
		_, err := NewRetryClient(mem, WithRetries(0))
		require.NotNil(t, err)
	})
	t.Run("all-operations", func(t *testing.T) {
		flaky := &flakyTopology{inner: mem}
		c, err := NewRetryClient(flaky, WithLogger(nullLogger{}))
		require.Nil(t, err)
		_, err = c.ListDownwardLinks(ctx, ShardId{Host: "host1", Name: "status_0001"})
		require.Nil(t, err)
		_, err = c.GetShard(ctx, ShardId{Host: "host1", Name: "status_0001"})
		require.NotNil(t, err) // not present in the memory topology
		require.Nil(t, c.ReloadForwardings(ctx))
		assert.Equal(t, 1, mem.Reloads())
	})
	t.Run("retry-delay", func(t *testing.T) {
		clk := clock.NewMock()
		flaky := &flakyTopology{failures: 1, inner: mem}
		c, err := NewRetryClient(flaky,
			WithRetryDelay(time.Second),
			WithClock(clk),
			WithLogger(nullLogger{}))
		require.Nil(t, err)
		done := make(chan error, 1)
		go func() {
			_, err := c.GetForwardings(ctx)
			done <- err
		}()
		for {
			select {
			case err := <-done:
				require.Nil(t, err)
				assert.Equal(t, 2, flaky.callCount())
				return
			default:
				clk.Add(time.Second)
				time.Sleep(time.Millisecond)
			}
		}
	})
	t.Run("delay-honors-context", func(t *testing.T) {
		clk := clock.NewMock()
		cctx, cancel := context.WithCancel(ctx)
		flaky := &flakyTopology{failures: 1, inner: mem}
		c, err := NewRetryClient(flaky,
			WithRetryDelay(time.Minute),
			WithClock(clk),
			WithLogger(nullLogger{}))
		require.Nil(t, err)
		done := make(chan error, 1)
		go func() {
			_, err := c.GetForwardings(cctx)
			done <- err
		}()
		time.Sleep(10 * time.Millisecond)
		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
	})
}

func TestBuildManifestWithRetryClient(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryTopology()
	tpl := mustTemplate(t, KindReplicating, "", 1,
		mustTemplate(t, "SqlShard", "host1", 1),
		mustTemplate(t, "SqlShard", "host2", 3))
	mem.AddTemplate("status", 0, "status_0001", tpl)
	flaky := &flakyTopology{failures: 2, inner: mem}
	c, err := NewRetryClient(flaky, WithLogger(nullLogger{}))
	require.Nil(t, err)
	m, err := BuildManifest(ctx, c, WithManifestLogger(nullLogger{}))
	require.Nil(t, err)
	assert.Equal(t, 1, m.TemplateCount())
}

type nullLogger struct{}

func (nullLogger) SetLevel(logger.LogLevel)                    {}
func (nullLogger) Debugf(format string, args ...interface{})   {}
func (nullLogger) Infof(format string, args ...interface{})    {}
func (nullLogger) Warningf(format string, args ...interface{}) {}
func (nullLogger) Errorf(format string, args ...interface{})   {}
func (nullLogger) Panicf(format string, args ...interface{})   {}
