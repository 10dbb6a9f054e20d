package nbi

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/internal/designer"
	"github.com/signalsfoundry/comms-designer/internal/logging"
	"github.com/signalsfoundry/comms-designer/internal/nbi/types"
)

// TopologyService implements the TopologyService gRPC server backed by a
// designer.Service.
//
// Semantics:
//   - Structural edits return the network as it is after the edit.
//   - Domain errors map to status codes via ToStatusError.
//   - WatchLayout streams committed layout frames until the client goes
//     away, or until the first final frame when UntilDone is set.
type TopologyService struct {
	svc *designer.Service
	log logging.Logger

	watchBuffer int
}

var _ TopologyServiceServer = (*TopologyService)(nil)

// NewTopologyService constructs a TopologyService bound to svc.
func NewTopologyService(svc *designer.Service, log logging.Logger) *TopologyService {
	if log == nil {
		log = logging.Noop()
	}
	return &TopologyService{svc: svc, log: log, watchBuffer: 256}
}

func (s *TopologyService) ensureReady() error {
	if s == nil || s.svc == nil {
		return status.Error(codes.Unavailable, "topology service not initialised")
	}
	return nil
}

func (s *TopologyService) fail(ctx context.Context, op string, err error) error {
	st := ToStatusError(err)
	if status.Code(st) == codes.Internal {
		logging.FromContextOr(ctx, s.log).Error(ctx, op+" failed", logging.Err(err))
	}
	return st
}

// edit runs fn and answers with the network's current state.
func (s *TopologyService) edit(ctx context.Context, op, networkID string, fn func() error) (*NetworkResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := fn(); err != nil {
		return nil, s.fail(ctx, op, err)
	}
	n, err := s.svc.Network(networkID)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return &NetworkResponse{Network: types.NetworkToWire(n)}, nil
}

//
// ---------- Lifecycle ----------
//

func (s *TopologyService) CreateNetwork(ctx context.Context, req *CreateNetworkRequest) (*NetworkResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	name := ""
	if req != nil {
		name = req.Name
	}
	n, err := s.svc.CreateNetwork(ctx, name)
	if err != nil {
		return nil, s.fail(ctx, "CreateNetwork", err)
	}
	return &NetworkResponse{Network: types.NetworkToWire(n)}, nil
}

func (s *TopologyService) DeleteNetwork(ctx context.Context, req *NetworkRequest) (*Empty, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.svc.DeleteNetwork(ctx, req.NetworkID); err != nil {
		return nil, s.fail(ctx, "DeleteNetwork", err)
	}
	return &Empty{}, nil
}

func (s *TopologyService) DuplicateNetwork(ctx context.Context, req *NetworkRequest) (*NetworkResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	n, err := s.svc.DuplicateNetwork(ctx, req.NetworkID)
	if err != nil {
		return nil, s.fail(ctx, "DuplicateNetwork", err)
	}
	return &NetworkResponse{Network: types.NetworkToWire(n)}, nil
}

func (s *TopologyService) RenameNetwork(ctx context.Context, req *RenameNetworkRequest) (*NetworkResponse, error) {
	if req == nil {
		return nil, ToStatusError(ValidateNetworkRequest(nil))
	}
	if err := ValidateNetworkRequest(&NetworkRequest{NetworkID: req.NetworkID}); err != nil {
		return nil, ToStatusError(err)
	}
	return s.edit(ctx, "RenameNetwork", req.NetworkID, func() error {
		return s.svc.RenameNetwork(ctx, req.NetworkID, req.Name)
	})
}

func (s *TopologyService) GetNetwork(ctx context.Context, req *NetworkRequest) (*NetworkResponse, error) {
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	return s.edit(ctx, "GetNetwork", req.NetworkID, func() error { return nil })
}

//
// ---------- Structure ----------
//

func (s *TopologyService) AddMember(ctx context.Context, req *MemberRequest) (*NetworkResponse, error) {
	if err := ValidateMemberRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	return s.edit(ctx, "AddMember", req.NetworkID, func() error {
		return s.svc.AddMember(ctx, req.NetworkID, req.MemberID)
	})
}

func (s *TopologyService) RemoveMember(ctx context.Context, req *MemberRequest) (*NetworkResponse, error) {
	if err := ValidateMemberRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	return s.edit(ctx, "RemoveMember", req.NetworkID, func() error {
		return s.svc.RemoveMember(ctx, req.NetworkID, req.MemberID)
	})
}

func (s *TopologyService) ReorderMembers(ctx context.Context, req *ReorderMembersRequest) (*NetworkResponse, error) {
	if req == nil {
		return nil, ToStatusError(ValidateNetworkRequest(nil))
	}
	return s.edit(ctx, "ReorderMembers", req.NetworkID, func() error {
		return s.svc.ReorderMembers(ctx, req.NetworkID, req.From, req.To)
	})
}

func (s *TopologyService) SetType(ctx context.Context, req *SetTypeRequest) (*NetworkResponse, error) {
	if err := ValidateSetTypeRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	return s.edit(ctx, "SetType", req.NetworkID, func() error {
		return s.svc.SetType(ctx, req.NetworkID, core.TopologyType(req.Type))
	})
}

func (s *TopologyService) SetHub(ctx context.Context, req *SetHubRequest) (*NetworkResponse, error) {
	if req == nil {
		return nil, ToStatusError(ValidateNetworkRequest(nil))
	}
	return s.edit(ctx, "SetHub", req.NetworkID, func() error {
		return s.svc.SetHub(ctx, req.NetworkID, req.Hub)
	})
}

func (s *TopologyService) SetPath(ctx context.Context, req *SetPathRequest) (*NetworkResponse, error) {
	if req == nil {
		return nil, ToStatusError(ValidateNetworkRequest(nil))
	}
	return s.edit(ctx, "SetPath", req.NetworkID, func() error {
		return s.svc.SetPath(ctx, req.NetworkID, req.Path)
	})
}

func (s *TopologyService) AddCustomLink(ctx context.Context, req *CustomLinkRequest) (*NetworkResponse, error) {
	if err := ValidateCustomLinkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	return s.edit(ctx, "AddCustomLink", req.NetworkID, func() error {
		return s.svc.AddCustomLink(ctx, req.NetworkID, req.From, req.To)
	})
}

func (s *TopologyService) RemoveCustomLink(ctx context.Context, req *CustomLinkRequest) (*NetworkResponse, error) {
	if err := ValidateCustomLinkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	return s.edit(ctx, "RemoveCustomLink", req.NetworkID, func() error {
		return s.svc.RemoveCustomLink(ctx, req.NetworkID, req.From, req.To)
	})
}

func (s *TopologyService) UpdateConfig(ctx context.Context, req *UpdateConfigRequest) (*ConfigResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ToStatusError(ValidateNetworkRequest(nil))
	}
	if err := s.svc.UpdateConfig(ctx, req.NetworkID, req.Config); err != nil {
		return nil, s.fail(ctx, "UpdateConfig", err)
	}
	return &ConfigResponse{Config: req.Config}, nil
}

func (s *TopologyService) ApplyPreset(ctx context.Context, req *ApplyPresetRequest) (*ConfigResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateApplyPresetRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	cfg, err := s.svc.ApplyPreset(ctx, req.NetworkID, core.LinkType(req.LinkType))
	if err != nil {
		return nil, s.fail(ctx, "ApplyPreset", err)
	}
	return &ConfigResponse{Config: cfg}, nil
}

//
// ---------- Bulk ----------
//

func (s *TopologyService) GetNetworks(ctx context.Context, _ *Empty) (*NetworksMessage, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	return &NetworksMessage{Networks: types.NetworksToWire(s.svc.GetNetworks())}, nil
}

// SetNetworks replaces the whole graph. The response carries the networks
// after sanitisation, which may differ from the request when dangling
// references were pruned.
func (s *TopologyService) SetNetworks(ctx context.Context, req *NetworksMessage) (*NetworksMessage, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var in []*types.Network
	if req != nil {
		in = req.Networks
	}
	nets := make([]*core.Network, 0, len(in))
	for _, w := range in {
		n, err := types.NetworkFromWire(w)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		nets = append(nets, n)
	}
	if err := s.svc.SetNetworks(ctx, nets); err != nil {
		return nil, s.fail(ctx, "SetNetworks", err)
	}
	return &NetworksMessage{Networks: types.NetworksToWire(s.svc.GetNetworks())}, nil
}

//
// ---------- Derived views ----------
//

func (s *TopologyService) ComputeLinks(ctx context.Context, req *NetworkRequest) (*LinksResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	links, err := s.svc.Links(req.NetworkID)
	if err != nil {
		return nil, s.fail(ctx, "ComputeLinks", err)
	}
	return &LinksResponse{NetworkID: req.NetworkID, Links: links}, nil
}

func (s *TopologyService) ComputeLinkBudget(ctx context.Context, req *NetworkRequest) (*LinkBudgetResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	b, err := s.svc.LinkBudget(req.NetworkID)
	if err != nil {
		return nil, s.fail(ctx, "ComputeLinkBudget", err)
	}
	return &LinkBudgetResponse{NetworkID: req.NetworkID, Budget: b}, nil
}

func (s *TopologyService) GetReport(ctx context.Context, req *NetworkRequest) (*ReportResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	r, err := s.svc.Report(req.NetworkID)
	if err != nil {
		return nil, s.fail(ctx, "GetReport", err)
	}
	return &ReportResponse{Report: r}, nil
}

func (s *TopologyService) GetStats(ctx context.Context, _ *Empty) (*StatsResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	return &StatsResponse{Stats: s.svc.Stats()}, nil
}

func (s *TopologyService) Resolve(ctx context.Context, req *ResolveRequest) (*ResolveResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ToStatusError(ValidateNetworkRequest(nil))
	}
	return &ResolveResponse{Resolved: s.svc.Resolve(req.MemberID)}, nil
}

//
// ---------- Layout ----------
//

func (s *TopologyService) StartLayout(ctx context.Context, req *NetworkRequest) (*LayoutStatusResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.svc.StartLayout(ctx, req.NetworkID); err != nil {
		return nil, s.fail(ctx, "StartLayout", err)
	}
	return s.GetLayoutStatus(ctx, req)
}

func (s *TopologyService) CancelLayout(ctx context.Context, req *NetworkRequest) (*CancelLayoutResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	return &CancelLayoutResponse{Cancelled: s.svc.CancelLayout(req.NetworkID)}, nil
}

func (s *TopologyService) GetLayoutStatus(ctx context.Context, req *NetworkRequest) (*LayoutStatusResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	st, err := s.svc.LayoutStatus(req.NetworkID)
	if err != nil {
		return nil, s.fail(ctx, "GetLayoutStatus", err)
	}
	return &LayoutStatusResponse{Status: st}, nil
}

func (s *TopologyService) ZoomToFit(ctx context.Context, req *NetworkRequest) (*PositionsResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	pos, err := s.svc.ZoomToFit(ctx, req.NetworkID)
	if err != nil {
		return nil, s.fail(ctx, "ZoomToFit", err)
	}
	return &PositionsResponse{NetworkID: req.NetworkID, Positions: types.PositionsToWire(pos)}, nil
}

func (s *TopologyService) GetPositions(ctx context.Context, req *NetworkRequest) (*PositionsResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := ValidateNetworkRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	pos, err := s.svc.Positions(req.NetworkID)
	if err != nil {
		return nil, s.fail(ctx, "GetPositions", err)
	}
	return &PositionsResponse{NetworkID: req.NetworkID, Positions: types.PositionsToWire(pos)}, nil
}

func (s *TopologyService) SetPosition(ctx context.Context, req *SetPositionRequest) (*PositionsResponse, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ToStatusError(ValidateNetworkRequest(nil))
	}
	if err := ValidateMemberRequest(&MemberRequest{NetworkID: req.NetworkID, MemberID: req.MemberID}); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.svc.SetPosition(ctx, req.NetworkID, req.MemberID, types.PointFromWire(req.Position)); err != nil {
		return nil, s.fail(ctx, "SetPosition", err)
	}
	return s.GetPositions(ctx, &NetworkRequest{NetworkID: req.NetworkID})
}

// WatchLayout streams layout frames.
func (s *TopologyService) WatchLayout(req *WatchLayoutRequest, stream LayoutWatchServer) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if req == nil {
		req = &WatchLayoutRequest{}
	}
	ctx := stream.Context()
	if req.NetworkID != "" {
		if _, err := s.svc.Network(req.NetworkID); err != nil {
			return ToStatusError(err)
		}
	}

	events, unsubscribe := s.svc.Subscribe(s.watchBuffer)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type != designer.EventPositionsUpdate || ev.Frame == nil {
				continue
			}
			if req.NetworkID != "" && ev.NetworkID != req.NetworkID {
				continue
			}
			if err := stream.Send(frameToWire(ev.Frame)); err != nil {
				return err
			}
			if req.UntilDone && ev.Frame.Done {
				return nil
			}
		}
	}
}
