package nbi

import (
	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/internal/designer"
	"github.com/signalsfoundry/comms-designer/internal/nbi/types"
)

// Request and response messages of commnet.v1.TopologyService. They travel
// as JSON through the codec registered in codec.go.

type Empty struct{}

type NetworkRequest struct {
	NetworkID string `json:"networkId"`
}

type CreateNetworkRequest struct {
	Name string `json:"name"`
}

type RenameNetworkRequest struct {
	NetworkID string `json:"networkId"`
	Name      string `json:"name"`
}

type MemberRequest struct {
	NetworkID string `json:"networkId"`
	MemberID  string `json:"memberId"`
}

type SetTypeRequest struct {
	NetworkID string `json:"networkId"`
	Type      string `json:"type"`
}

// SetHubRequest clears the hub when Hub is nil.
type SetHubRequest struct {
	NetworkID string  `json:"networkId"`
	Hub       *string `json:"hub"`
}

type SetPathRequest struct {
	NetworkID string   `json:"networkId"`
	Path      []string `json:"path"`
}

type ReorderMembersRequest struct {
	NetworkID string `json:"networkId"`
	From      int    `json:"from"`
	To        int    `json:"to"`
}

type UpdateConfigRequest struct {
	NetworkID string          `json:"networkId"`
	Config    core.LinkConfig `json:"config"`
}

type ApplyPresetRequest struct {
	NetworkID string `json:"networkId"`
	LinkType  string `json:"linkType"`
}

type CustomLinkRequest struct {
	NetworkID string `json:"networkId"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type SetPositionRequest struct {
	NetworkID string      `json:"networkId"`
	MemberID  string      `json:"memberId"`
	Position  types.Point `json:"position"`
}

type ResolveRequest struct {
	MemberID string `json:"memberId"`
}

// WatchLayoutRequest streams frames of one network, or of every network
// when NetworkID is empty. With UntilDone the stream ends after the first
// final frame.
type WatchLayoutRequest struct {
	NetworkID string `json:"networkId"`
	UntilDone bool   `json:"untilDone"`
}

type NetworkResponse struct {
	Network *types.Network `json:"network"`
}

type NetworksMessage struct {
	Networks []*types.Network `json:"networks"`
}

type LinksResponse struct {
	NetworkID string      `json:"networkId"`
	Links     []core.Link `json:"links"`
}

type LinkBudgetResponse struct {
	NetworkID string          `json:"networkId"`
	Budget    core.LinkBudget `json:"budget"`
}

type ReportResponse struct {
	Report core.NetworkReport `json:"report"`
}

type StatsResponse struct {
	Stats core.Stats `json:"stats"`
}

type ResolveResponse struct {
	Resolved core.Resolved `json:"resolved"`
}

type ConfigResponse struct {
	Config core.LinkConfig `json:"config"`
}

type PositionsResponse struct {
	NetworkID string                 `json:"networkId"`
	Positions map[string]types.Point `json:"positions"`
}

type LayoutStatusResponse struct {
	Status designer.LayoutStatus `json:"status"`
}

type CancelLayoutResponse struct {
	Cancelled bool `json:"cancelled"`
}

type LayoutFrame struct {
	NetworkID string                 `json:"networkId"`
	Tick      int                    `json:"tick"`
	Positions map[string]types.Point `json:"positions"`
	Done      bool                   `json:"done"`
	Cancelled bool                   `json:"cancelled,omitempty"`
}

func frameToWire(f *designer.LayoutFrame) *LayoutFrame {
	return &LayoutFrame{
		NetworkID: f.NetworkID,
		Tick:      f.Tick,
		Positions: types.PositionsToWire(f.Positions),
		Done:      f.Done,
		Cancelled: f.Cancelled,
	}
}
