package nbi

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a typed client for commnet.v1.TopologyService. Every call uses
// the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateNetwork(ctx context.Context, in *CreateNetworkRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "CreateNetwork", in, opts...)
}

func (c *Client) DeleteNetwork(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, "DeleteNetwork", in, opts...)
}

func (c *Client) DuplicateNetwork(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "DuplicateNetwork", in, opts...)
}

func (c *Client) RenameNetwork(ctx context.Context, in *RenameNetworkRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "RenameNetwork", in, opts...)
}

func (c *Client) GetNetwork(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "GetNetwork", in, opts...)
}

func (c *Client) AddMember(ctx context.Context, in *MemberRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "AddMember", in, opts...)
}

func (c *Client) RemoveMember(ctx context.Context, in *MemberRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "RemoveMember", in, opts...)
}

func (c *Client) ReorderMembers(ctx context.Context, in *ReorderMembersRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "ReorderMembers", in, opts...)
}

func (c *Client) SetType(ctx context.Context, in *SetTypeRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "SetType", in, opts...)
}

func (c *Client) SetHub(ctx context.Context, in *SetHubRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "SetHub", in, opts...)
}

func (c *Client) SetPath(ctx context.Context, in *SetPathRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "SetPath", in, opts...)
}

func (c *Client) AddCustomLink(ctx context.Context, in *CustomLinkRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "AddCustomLink", in, opts...)
}

func (c *Client) RemoveCustomLink(ctx context.Context, in *CustomLinkRequest, opts ...grpc.CallOption) (*NetworkResponse, error) {
	return invoke[NetworkResponse](ctx, c, "RemoveCustomLink", in, opts...)
}

func (c *Client) UpdateConfig(ctx context.Context, in *UpdateConfigRequest, opts ...grpc.CallOption) (*ConfigResponse, error) {
	return invoke[ConfigResponse](ctx, c, "UpdateConfig", in, opts...)
}

func (c *Client) ApplyPreset(ctx context.Context, in *ApplyPresetRequest, opts ...grpc.CallOption) (*ConfigResponse, error) {
	return invoke[ConfigResponse](ctx, c, "ApplyPreset", in, opts...)
}

func (c *Client) GetNetworks(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*NetworksMessage, error) {
	return invoke[NetworksMessage](ctx, c, "GetNetworks", in, opts...)
}

func (c *Client) SetNetworks(ctx context.Context, in *NetworksMessage, opts ...grpc.CallOption) (*NetworksMessage, error) {
	return invoke[NetworksMessage](ctx, c, "SetNetworks", in, opts...)
}

func (c *Client) ComputeLinks(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*LinksResponse, error) {
	return invoke[LinksResponse](ctx, c, "ComputeLinks", in, opts...)
}

func (c *Client) ComputeLinkBudget(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*LinkBudgetResponse, error) {
	return invoke[LinkBudgetResponse](ctx, c, "ComputeLinkBudget", in, opts...)
}

func (c *Client) GetReport(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*ReportResponse, error) {
	return invoke[ReportResponse](ctx, c, "GetReport", in, opts...)
}

func (c *Client) GetStats(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c, "GetStats", in, opts...)
}

func (c *Client) Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*ResolveResponse, error) {
	return invoke[ResolveResponse](ctx, c, "Resolve", in, opts...)
}

func (c *Client) StartLayout(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*LayoutStatusResponse, error) {
	return invoke[LayoutStatusResponse](ctx, c, "StartLayout", in, opts...)
}

func (c *Client) CancelLayout(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*CancelLayoutResponse, error) {
	return invoke[CancelLayoutResponse](ctx, c, "CancelLayout", in, opts...)
}

func (c *Client) GetLayoutStatus(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*LayoutStatusResponse, error) {
	return invoke[LayoutStatusResponse](ctx, c, "GetLayoutStatus", in, opts...)
}

func (c *Client) ZoomToFit(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*PositionsResponse, error) {
	return invoke[PositionsResponse](ctx, c, "ZoomToFit", in, opts...)
}

func (c *Client) GetPositions(ctx context.Context, in *NetworkRequest, opts ...grpc.CallOption) (*PositionsResponse, error) {
	return invoke[PositionsResponse](ctx, c, "GetPositions", in, opts...)
}

func (c *Client) SetPosition(ctx context.Context, in *SetPositionRequest, opts ...grpc.CallOption) (*PositionsResponse, error) {
	return invoke[PositionsResponse](ctx, c, "SetPosition", in, opts...)
}

// LayoutWatchClient receives frames from a WatchLayout stream.
type LayoutWatchClient struct {
	stream grpc.ClientStream
}

// Recv blocks for the next frame. It returns io.EOF when the server ends
// the stream.
func (x *LayoutWatchClient) Recv() (*LayoutFrame, error) {
	m := new(LayoutFrame)
	if err := x.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// WatchLayout opens a layout frame stream.
func (c *Client) WatchLayout(ctx context.Context, in *WatchLayoutRequest, opts ...grpc.CallOption) (*LayoutWatchClient, error) {
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	stream, err := c.cc.NewStream(ctx, &TopologyServiceDesc.Streams[0], "/"+ServiceName+"/WatchLayout", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &LayoutWatchClient{stream: stream}, nil
}
