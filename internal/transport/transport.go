package transport

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	// CodecName selects the JSON codec on every call. Messages are plain
	// structs rather than generated protobuf.
	CodecName = "json"

	ServiceName = "shardtree.Topology"
)

func init() {
	encoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (codec) Unmarshal(b []byte, v interface{}) error { return json.Unmarshal(b, v) }

func (codec) Name() string { return CodecName }

type ShardId struct {
	Host string `json:"host"`
	Name string `json:"name"`
}

func (id ShardId) String() string {
	return id.Host + "/" + id.Name
}

type ShardInfo struct {
	ID         ShardId `json:"id"`
	ClassName  string  `json:"className"`
	SourceType string  `json:"sourceType"`
	DestType   string  `json:"destType"`
	Extra      int     `json:"extra"`
}

type Forwarding struct {
	TableID string  `json:"tableID"`
	BaseID  uint64  `json:"baseID"`
	ShardID ShardId `json:"shardID"`
}

type LinkInfo struct {
	ParentID ShardId `json:"parentID"`
	ChildID  ShardId `json:"childID"`
	Weight   int     `json:"weight"`
}

type GetForwardingsRequest struct{}

type GetForwardingsResponse struct {
	Forwardings []Forwarding `json:"forwardings"`
}

type ListDownwardLinksRequest struct {
	Parent ShardId `json:"parent"`
}

type ListDownwardLinksResponse struct {
	Links []LinkInfo `json:"links"`
}

type GetShardRequest struct {
	ID ShardId `json:"id"`
}

type GetShardResponse struct {
	Shard ShardInfo `json:"shard"`
}

type ReloadForwardingsRequest struct{}

type ReloadForwardingsResponse struct{}

type TopologyClient interface {
	GetForwardings(ctx context.Context, in *GetForwardingsRequest, opts ...grpc.CallOption) (*GetForwardingsResponse, error)
	ListDownwardLinks(ctx context.Context, in *ListDownwardLinksRequest, opts ...grpc.CallOption) (*ListDownwardLinksResponse, error)
	GetShard(ctx context.Context, in *GetShardRequest, opts ...grpc.CallOption) (*GetShardResponse, error)
	ReloadForwardings(ctx context.Context, in *ReloadForwardingsRequest, opts ...grpc.CallOption) (*ReloadForwardingsResponse, error)
}

type topologyClient struct {
	cc grpc.ClientConnInterface
}

func NewTopologyClient(cc grpc.ClientConnInterface) TopologyClient {
	return &topologyClient{cc}
}

func (c *topologyClient) GetForwardings(ctx context.Context, in *GetForwardingsRequest, opts ...grpc.CallOption) (*GetForwardingsResponse, error) {
	out := new(GetForwardingsResponse)
	err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetForwardings", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *topologyClient) ListDownwardLinks(ctx context.Context, in *ListDownwardLinksRequest, opts ...grpc.CallOption) (*ListDownwardLinksResponse, error) {
	out := new(ListDownwardLinksResponse)
	err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListDownwardLinks", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *topologyClient) GetShard(ctx context.Context, in *GetShardRequest, opts ...grpc.CallOption) (*GetShardResponse, error) {
	out := new(GetShardResponse)
	err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetShard", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *topologyClient) ReloadForwardings(ctx context.Context, in *ReloadForwardingsRequest, opts ...grpc.CallOption) (*ReloadForwardingsResponse, error) {
	out := new(ReloadForwardingsResponse)
	err := c.cc.Invoke(ctx, "/"+ServiceName+"/ReloadForwardings", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type TopologyServer interface {
	GetForwardings(ctx context.Context, in *GetForwardingsRequest) (*GetForwardingsResponse, error)
	ListDownwardLinks(ctx context.Context, in *ListDownwardLinksRequest) (*ListDownwardLinksResponse, error)
	GetShard(ctx context.Context, in *GetShardRequest) (*GetShardResponse, error)
	ReloadForwardings(ctx context.Context, in *ReloadForwardingsRequest) (*ReloadForwardingsResponse, error)
}

func RegisterTopologyServer(s grpc.ServiceRegistrar, srv TopologyServer) {
	s.RegisterService(&Topology_ServiceDesc, srv)
}

func getForwardingsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetForwardingsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TopologyServer).GetForwardings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetForwardings",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TopologyServer).GetForwardings(ctx, req.(*GetForwardingsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listDownwardLinksHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListDownwardLinksRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TopologyServer).ListDownwardLinks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/ListDownwardLinks",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TopologyServer).ListDownwardLinks(ctx, req.(*ListDownwardLinksRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getShardHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetShardRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TopologyServer).GetShard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetShard",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TopologyServer).GetShard(ctx, req.(*GetShardRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func reloadForwardingsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReloadForwardingsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TopologyServer).ReloadForwardings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/ReloadForwardings",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TopologyServer).ReloadForwardings(ctx, req.(*ReloadForwardingsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Topology_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TopologyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetForwardings", Handler: getForwardingsHandler},
		{MethodName: "ListDownwardLinks", Handler: listDownwardLinksHandler},
		{MethodName: "GetShard", Handler: getShardHandler},
		{MethodName: "ReloadForwardings", Handler: reloadForwardingsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shardtree/topology",
}
