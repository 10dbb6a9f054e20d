package types

import (
	"errors"
	"strings"

	"github.com/signalsfoundry/comms-designer/core"
)

//
// Wire representations of topology objects.
//
// These keep the gRPC surface decoupled from the in-memory model: member
// kinds are spelled out explicitly and positions travel as plain maps.
//

// Member is one network member on the wire.
type Member struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Network mirrors core.Network with explicit member kinds.
type Network struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Members []Member        `json:"members"`
	Hub     *string         `json:"hub,omitempty"`
	Path    []string        `json:"path,omitempty"`
	Links   []core.Link     `json:"links,omitempty"`
	Config  core.LinkConfig `json:"config"`
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

//
// Mapping functions.
//

// NetworkToWire converts a domain network for transmission. A nil input
// maps to nil.
func NetworkToWire(n *core.Network) *Network {
	if n == nil {
		return nil
	}
	cp := n.Clone()
	out := &Network{
		ID:      cp.ID,
		Name:    cp.Name,
		Type:    string(cp.Type),
		Members: make([]Member, 0, len(cp.Members)),
		Hub:     cp.Hub,
		Path:    cp.Path,
		Links:   cp.Links,
		Config:  cp.Config,
	}
	for _, m := range cp.Members {
		out.Members = append(out.Members, Member{ID: m.ID, Kind: string(m.Kind)})
	}
	return out
}

// NetworksToWire converts a slice of networks, skipping nils.
func NetworksToWire(ns []*core.Network) []*Network {
	out := make([]*Network, 0, len(ns))
	for _, n := range ns {
		if w := NetworkToWire(n); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// NetworkFromWire converts a wire network into the domain model.
//
// Conventions:
//   - An empty type defaults to mesh; an unknown type is rejected.
//   - Member kinds are carried over as given; TopologyStore.SetNetworks
//     re-resolves them against the loaded ids anyway.
//   - A zero config (no link type) is replaced by the default config.
func NetworkFromWire(w *Network) (*core.Network, error) {
	if w == nil {
		return nil, errors.New("nil Network")
	}
	if strings.TrimSpace(w.ID) == "" {
		return nil, errors.New("network id is required")
	}
	t := core.TopologyType(w.Type)
	if t == "" {
		t = core.TopologyMesh
	}
	if !t.Valid() {
		return nil, errors.New("unknown topology type " + w.Type)
	}

	n := &core.Network{
		ID:      w.ID,
		Name:    w.Name,
		Type:    t,
		Members: make([]core.MemberRef, 0, len(w.Members)),
		Path:    append([]string(nil), w.Path...),
		Links:   append([]core.Link(nil), w.Links...),
		Config:  w.Config,
	}
	if w.Hub != nil {
		hub := *w.Hub
		n.Hub = &hub
	}
	for _, m := range w.Members {
		ref := core.EntityRef(m.ID)
		if core.MemberKind(m.Kind) == core.MemberNetwork {
			ref = core.NetworkRef(m.ID)
		}
		n.Members = append(n.Members, ref)
	}
	if n.Config.LinkType == "" {
		n.Config = core.DefaultLinkConfig()
	}
	return n, nil
}

// PositionsToWire converts a position map.
func PositionsToWire(pos core.Positions) map[string]Point {
	out := make(map[string]Point, len(pos))
	for id, p := range pos {
		out[id] = Point{X: p.X, Y: p.Y}
	}
	return out
}

// PointFromWire converts a single coordinate.
func PointFromWire(p Point) core.Point {
	return core.Point{X: p.X, Y: p.Y}
}
