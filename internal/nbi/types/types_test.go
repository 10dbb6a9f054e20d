package types

import (
	"testing"

	"github.com/signalsfoundry/comms-designer/core"
)

func TestNetworkMappingRoundTrip(t *testing.T) {
	hub := "awacs"
	orig := &core.Network{
		ID:   "net_001",
		Name: "Link-16",
		Type: core.TopologyStar,
		Members: []core.MemberRef{
			core.EntityRef("awacs"),
			core.NetworkRef("net_002"),
		},
		Hub:    &hub,
		Config: core.DefaultLinkConfig(),
	}

	w := NetworkToWire(orig)
	if w == nil {
		t.Fatalf("NetworkToWire returned nil")
	}
	if got := w.Members[1].Kind; got != string(core.MemberNetwork) {
		t.Fatalf("member kind = %q, want %q", got, core.MemberNetwork)
	}

	back, err := NetworkFromWire(w)
	if err != nil {
		t.Fatalf("NetworkFromWire returned error: %v", err)
	}
	if back.ID != orig.ID || back.Type != orig.Type {
		t.Errorf("identity mismatch: got %s/%s, want %s/%s", back.ID, back.Type, orig.ID, orig.Type)
	}
	if !back.Members[1].IsNetwork() {
		t.Errorf("nested network lost its kind")
	}
	if back.HubID() != "awacs" {
		t.Errorf("hub = %q, want awacs", back.HubID())
	}

	*w.Hub = "changed"
	if orig.HubID() != "awacs" {
		t.Errorf("wire hub aliases the domain network")
	}
}

func TestNetworkFromWireDefaults(t *testing.T) {
	n, err := NetworkFromWire(&Network{ID: "net_009"})
	if err != nil {
		t.Fatalf("NetworkFromWire returned error: %v", err)
	}
	if n.Type != core.TopologyMesh {
		t.Errorf("type = %q, want mesh", n.Type)
	}
	if n.Config != core.DefaultLinkConfig() {
		t.Errorf("config = %+v, want defaults", n.Config)
	}
}

func TestNetworkFromWireRejects(t *testing.T) {
	cases := []*Network{
		nil,
		{ID: " "},
		{ID: "net_001", Type: "ring"},
	}
	for _, c := range cases {
		if _, err := NetworkFromWire(c); err == nil {
			t.Errorf("NetworkFromWire(%+v) = nil error, want error", c)
		}
	}
}

func TestPositionsToWire(t *testing.T) {
	got := PositionsToWire(core.Positions{"a": {X: 1, Y: 2}})
	if got["a"] != (Point{X: 1, Y: 2}) {
		t.Fatalf("PositionsToWire = %v", got)
	}
	if PointFromWire(Point{X: 3, Y: 4}) != (core.Point{X: 3, Y: 4}) {
		t.Fatalf("PointFromWire mismatch")
	}
}
