package nbi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalsfoundry/comms-designer/core"
)

var (
	// ErrInvalidRequest marks structurally invalid RPC input.
	ErrInvalidRequest = errors.New("invalid request")
)

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
	}
	return nil
}

// ValidateNetworkRequest checks that a network id is present.
func ValidateNetworkRequest(req *NetworkRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	return requireID("network_id", req.NetworkID)
}

// ValidateMemberRequest checks both ids of a membership change.
func ValidateMemberRequest(req *MemberRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if err := requireID("network_id", req.NetworkID); err != nil {
		return err
	}
	return requireID("member_id", req.MemberID)
}

// ValidateSetTypeRequest rejects unknown topology names before they reach
// the store.
func ValidateSetTypeRequest(req *SetTypeRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if err := requireID("network_id", req.NetworkID); err != nil {
		return err
	}
	if !core.TopologyType(req.Type).Valid() {
		return fmt.Errorf("%w: unknown topology type %q", ErrInvalidRequest, req.Type)
	}
	return nil
}

// ValidateCustomLinkRequest checks the network and both endpoints.
func ValidateCustomLinkRequest(req *CustomLinkRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if err := requireID("network_id", req.NetworkID); err != nil {
		return err
	}
	if err := requireID("from", req.From); err != nil {
		return err
	}
	return requireID("to", req.To)
}

// ValidateApplyPresetRequest checks that the link type has a preset.
func ValidateApplyPresetRequest(req *ApplyPresetRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if err := requireID("network_id", req.NetworkID); err != nil {
		return err
	}
	if _, ok := core.Preset(core.LinkType(req.LinkType)); !ok {
		return fmt.Errorf("%w: no preset for link type %q", ErrInvalidRequest, req.LinkType)
	}
	return nil
}
