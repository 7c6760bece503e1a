package shardtree

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lni/dragonboat/v4/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/logbn/shardtree/internal/transport"
)

// The gRPC topology client. Calls fan out across the configured server
// addresses until one answers.
type grpcTopology struct {
	addrs []string
	pool  *grpcClientPool
	log   logger.ILogger
}

func NewGrpcTopologyClient(addrs []string, dialOpts ...grpc.DialOption) *grpcTopology {
	return &grpcTopology{
		addrs: addrs,
		pool:  newGrpcClientPool(16, dialOpts...),
		log:   logger.GetLogger(magicPrefix),
	}
}

func (c *grpcTopology) GetForwardings(ctx context.Context) (forwardings []Forwarding, err error) {
	if len(c.addrs) == 0 {
		err = ErrNoServersAvailable
		return
	}
	var res *transport.GetForwardingsResponse
	for _, addr := range c.addrs {
		res, err = c.pool.get(addr).GetForwardings(ctx, &transport.GetForwardingsRequest{})
		if err == nil {
			forwardings = res.Forwardings
			return
		}
		c.log.Warningf(`GetForwardings failed on %s: %v`, addr, err)
	}
	return
}

func (c *grpcTopology) ListDownwardLinks(ctx context.Context, parent ShardId) (links []LinkInfo, err error) {
	if len(c.addrs) == 0 {
		err = ErrNoServersAvailable
		return
	}
	var res *transport.ListDownwardLinksResponse
	for _, addr := range c.addrs {
		res, err = c.pool.get(addr).ListDownwardLinks(ctx, &transport.ListDownwardLinksRequest{Parent: parent})
		if err == nil {
			links = res.Links
			return
		}
		c.log.Warningf(`ListDownwardLinks failed on %s: %v`, addr, err)
	}
	return
}

func (c *grpcTopology) GetShard(ctx context.Context, id ShardId) (info ShardInfo, err error) {
	if len(c.addrs) == 0 {
		err = ErrNoServersAvailable
		return
	}
	var res *transport.GetShardResponse
	for _, addr := range c.addrs {
		res, err = c.pool.get(addr).GetShard(ctx, &transport.GetShardRequest{ID: id})
		if err == nil {
			info = res.Shard
			return
		}
		c.log.Warningf(`GetShard failed on %s: %v`, addr, err)
	}
	return
}

func (c *grpcTopology) ReloadForwardings(ctx context.Context) (err error) {
	if len(c.addrs) == 0 {
		err = ErrNoServersAvailable
		return
	}
	for _, addr := range c.addrs {
		_, err = c.pool.get(addr).ReloadForwardings(ctx, &transport.ReloadForwardingsRequest{})
		if err == nil {
			return
		}
		c.log.Warningf(`ReloadForwardings failed on %s: %v`, addr, err)
	}
	return
}

func (c *grpcTopology) Close() {
	c.pool.Close()
}

type grpcClientPool struct {
	clients  *lru.Cache[string, grpcClientPoolEntry]
	dialOpts []grpc.DialOption
}

type grpcClientPoolEntry struct {
	client transport.TopologyClient
	conn   *grpc.ClientConn
}

func grpcClientPoolEvictFunc(addr string, e grpcClientPoolEntry) {
	e.conn.Close()
}

func newGrpcClientPool(size int, dialOpts ...grpc.DialOption) *grpcClientPool {
	clients, _ := lru.NewWithEvict[string, grpcClientPoolEntry](size, grpcClientPoolEvictFunc)
	return &grpcClientPool{
		clients:  clients,
		dialOpts: dialOpts,
	}
}

func (c *grpcClientPool) get(addr string) (client transport.TopologyClient) {
	e, ok := c.clients.Get(addr)
	if ok {
		return e.client
	}
	conn, err := grpc.Dial(addr, append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(transport.CodecName)),
	}, c.dialOpts...)...)
	if err != nil {
		return &grpcClientErr{err}
	}
	client = transport.NewTopologyClient(conn)
	c.clients.Add(addr, grpcClientPoolEntry{client, conn})
	return
}

func (c *grpcClientPool) remove(addr string) bool {
	return c.clients.Remove(addr)
}

func (c *grpcClientPool) Close() {
	c.clients.Purge()
}

type grpcClientErr struct {
	err error
}

func (c *grpcClientErr) GetForwardings(ctx context.Context, in *transport.GetForwardingsRequest, opts ...grpc.CallOption) (*transport.GetForwardingsResponse, error) {
	return nil, c.err
}

func (c *grpcClientErr) ListDownwardLinks(ctx context.Context, in *transport.ListDownwardLinksRequest, opts ...grpc.CallOption) (*transport.ListDownwardLinksResponse, error) {
	return nil, c.err
}

func (c *grpcClientErr) GetShard(ctx context.Context, in *transport.GetShardRequest, opts ...grpc.CallOption) (*transport.GetShardResponse, error) {
	return nil, c.err
}

func (c *grpcClientErr) ReloadForwardings(ctx context.Context, in *transport.ReloadForwardingsRequest, opts ...grpc.CallOption) (*transport.ReloadForwardingsResponse, error) {
	return nil, c.err
}
