package shardtree

import (
	"context"
	"net"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"google.golang.org/grpc"

	"github.com/logbn/shardtree/internal/transport"
)

// TopologyServer exposes any TopologyClient implementation over gRPC,
// typically a MemoryTopology in tests or a store-backed service in an
// operator tool.
type TopologyServer struct {
	backend    TopologyClient
	server     *grpc.Server
	listener   net.Listener
	listenAddr string
	log        logger.ILogger
}

func NewTopologyServer(backend TopologyClient, listenAddr string) *TopologyServer {
	return &TopologyServer{
		backend:    backend,
		listenAddr: listenAddr,
		log:        logger.GetLogger(magicPrefix),
	}
}

func (s *TopologyServer) Start() (err error) {
	s.listener, err = net.Listen("tcp", s.listenAddr)
	if err != nil {
		return
	}
	s.server = grpc.NewServer()
	transport.RegisterTopologyServer(s.server, &topologyServerAdapter{s.backend})
	go func() {
		if err := s.server.Serve(s.listener); err != nil {
			s.log.Errorf(`Topology server stopped: %v`, err)
		}
	}()
	s.log.Infof(`Topology server listening on %s`, s.Addr())
	return
}

// Addr returns the bound address, useful when listening on port 0.
func (s *TopologyServer) Addr() string {
	if s.listener == nil {
		return s.listenAddr
	}
	return s.listener.Addr().String()
}

func (s *TopologyServer) Stop() {
	if s.server != nil {
		var ch = make(chan bool)
		go func() {
			s.server.GracefulStop()
			close(ch)
		}()
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			s.server.Stop()
		}
	}
}

type topologyServerAdapter struct {
	backend TopologyClient
}

func (a *topologyServerAdapter) GetForwardings(ctx context.Context, req *transport.GetForwardingsRequest) (res *transport.GetForwardingsResponse, err error) {
	forwardings, err := a.backend.GetForwardings(ctx)
	if err != nil {
		return
	}
	res = &transport.GetForwardingsResponse{Forwardings: forwardings}
	return
}

func (a *topologyServerAdapter) ListDownwardLinks(ctx context.Context, req *transport.ListDownwardLinksRequest) (res *transport.ListDownwardLinksResponse, err error) {
	links, err := a.backend.ListDownwardLinks(ctx, req.Parent)
	if err != nil {
		return
	}
	res = &transport.ListDownwardLinksResponse{Links: links}
	return
}

func (a *topologyServerAdapter) GetShard(ctx context.Context, req *transport.GetShardRequest) (res *transport.GetShardResponse, err error) {
	info, err := a.backend.GetShard(ctx, req.ID)
	if err != nil {
		return
	}
	res = &transport.GetShardResponse{Shard: info}
	return
}

func (a *topologyServerAdapter) ReloadForwardings(ctx context.Context, req *transport.ReloadForwardingsRequest) (res *transport.ReloadForwardingsResponse, err error) {
	if err = a.backend.ReloadForwardings(ctx); err != nil {
		return
	}
	res = &transport.ReloadForwardingsResponse{}
	return
}
