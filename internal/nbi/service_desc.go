package nbi

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "commnet.v1.TopologyService"

// TopologyServiceServer is the server API of commnet.v1.TopologyService.
type TopologyServiceServer interface {
	CreateNetwork(context.Context, *CreateNetworkRequest) (*NetworkResponse, error)
	DeleteNetwork(context.Context, *NetworkRequest) (*Empty, error)
	DuplicateNetwork(context.Context, *NetworkRequest) (*NetworkResponse, error)
	RenameNetwork(context.Context, *RenameNetworkRequest) (*NetworkResponse, error)
	GetNetwork(context.Context, *NetworkRequest) (*NetworkResponse, error)

	AddMember(context.Context, *MemberRequest) (*NetworkResponse, error)
	RemoveMember(context.Context, *MemberRequest) (*NetworkResponse, error)
	ReorderMembers(context.Context, *ReorderMembersRequest) (*NetworkResponse, error)
	SetType(context.Context, *SetTypeRequest) (*NetworkResponse, error)
	SetHub(context.Context, *SetHubRequest) (*NetworkResponse, error)
	SetPath(context.Context, *SetPathRequest) (*NetworkResponse, error)
	AddCustomLink(context.Context, *CustomLinkRequest) (*NetworkResponse, error)
	RemoveCustomLink(context.Context, *CustomLinkRequest) (*NetworkResponse, error)
	UpdateConfig(context.Context, *UpdateConfigRequest) (*ConfigResponse, error)
	ApplyPreset(context.Context, *ApplyPresetRequest) (*ConfigResponse, error)

	GetNetworks(context.Context, *Empty) (*NetworksMessage, error)
	SetNetworks(context.Context, *NetworksMessage) (*NetworksMessage, error)

	ComputeLinks(context.Context, *NetworkRequest) (*LinksResponse, error)
	ComputeLinkBudget(context.Context, *NetworkRequest) (*LinkBudgetResponse, error)
	GetReport(context.Context, *NetworkRequest) (*ReportResponse, error)
	GetStats(context.Context, *Empty) (*StatsResponse, error)
	Resolve(context.Context, *ResolveRequest) (*ResolveResponse, error)

	StartLayout(context.Context, *NetworkRequest) (*LayoutStatusResponse, error)
	CancelLayout(context.Context, *NetworkRequest) (*CancelLayoutResponse, error)
	GetLayoutStatus(context.Context, *NetworkRequest) (*LayoutStatusResponse, error)
	ZoomToFit(context.Context, *NetworkRequest) (*PositionsResponse, error)
	GetPositions(context.Context, *NetworkRequest) (*PositionsResponse, error)
	SetPosition(context.Context, *SetPositionRequest) (*PositionsResponse, error)
	WatchLayout(*WatchLayoutRequest, LayoutWatchServer) error
}

// LayoutWatchServer is the server side of a WatchLayout stream.
type LayoutWatchServer interface {
	Send(*LayoutFrame) error
	grpc.ServerStream
}

type layoutWatchServer struct {
	grpc.ServerStream
}

func (x *layoutWatchServer) Send(f *LayoutFrame) error {
	return x.ServerStream.SendMsg(f)
}

// RegisterTopologyServiceServer attaches srv to a gRPC server.
func RegisterTopologyServiceServer(s grpc.ServiceRegistrar, srv TopologyServiceServer) {
	s.RegisterService(&TopologyServiceDesc, srv)
}

// unary builds the method descriptor for one request/response RPC.
func unary[Req, Resp any](name string, call func(TopologyServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			impl := srv.(TopologyServiceServer)
			if interceptor == nil {
				resp, err := call(impl, ctx, in)
				return resp, err
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				resp, err := call(impl, ctx, req.(*Req))
				return resp, err
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchLayoutHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchLayoutRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TopologyServiceServer).WatchLayout(in, &layoutWatchServer{stream})
}

// TopologyServiceDesc describes commnet.v1.TopologyService for
// grpc.Server.RegisterService.
var TopologyServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TopologyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateNetwork", TopologyServiceServer.CreateNetwork),
		unary("DeleteNetwork", TopologyServiceServer.DeleteNetwork),
		unary("DuplicateNetwork", TopologyServiceServer.DuplicateNetwork),
		unary("RenameNetwork", TopologyServiceServer.RenameNetwork),
		unary("GetNetwork", TopologyServiceServer.GetNetwork),
		unary("AddMember", TopologyServiceServer.AddMember),
		unary("RemoveMember", TopologyServiceServer.RemoveMember),
		unary("ReorderMembers", TopologyServiceServer.ReorderMembers),
		unary("SetType", TopologyServiceServer.SetType),
		unary("SetHub", TopologyServiceServer.SetHub),
		unary("SetPath", TopologyServiceServer.SetPath),
		unary("AddCustomLink", TopologyServiceServer.AddCustomLink),
		unary("RemoveCustomLink", TopologyServiceServer.RemoveCustomLink),
		unary("UpdateConfig", TopologyServiceServer.UpdateConfig),
		unary("ApplyPreset", TopologyServiceServer.ApplyPreset),
		unary("GetNetworks", TopologyServiceServer.GetNetworks),
		unary("SetNetworks", TopologyServiceServer.SetNetworks),
		unary("ComputeLinks", TopologyServiceServer.ComputeLinks),
		unary("ComputeLinkBudget", TopologyServiceServer.ComputeLinkBudget),
		unary("GetReport", TopologyServiceServer.GetReport),
		unary("GetStats", TopologyServiceServer.GetStats),
		unary("Resolve", TopologyServiceServer.Resolve),
		unary("StartLayout", TopologyServiceServer.StartLayout),
		unary("CancelLayout", TopologyServiceServer.CancelLayout),
		unary("GetLayoutStatus", TopologyServiceServer.GetLayoutStatus),
		unary("ZoomToFit", TopologyServiceServer.ZoomToFit),
		unary("GetPositions", TopologyServiceServer.GetPositions),
		unary("SetPosition", TopologyServiceServer.SetPosition),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchLayout",
			Handler:       watchLayoutHandler,
			ServerStreams: true,
		},
	},
	Metadata: "commnet/v1/topology.json",
}
