package core

// TopologyType selects how links between a network's members are derived
// and how the layout seeds their positions.
type TopologyType string

const (
	TopologyMesh     TopologyType = "mesh"
	TopologyStar     TopologyType = "star"
	TopologyMultihop TopologyType = "multihop"
	TopologyCustom   TopologyType = "custom"
)

// Valid reports whether t is one of the known topology kinds.
func (t TopologyType) Valid() bool {
	switch t {
	case TopologyMesh, TopologyStar, TopologyMultihop, TopologyCustom:
		return true
	}
	return false
}

// MemberKind distinguishes plain scenario entities from nested networks.
type MemberKind string

const (
	MemberEntity  MemberKind = "entity"
	MemberNetwork MemberKind = "network"
)

// MemberRef is a member identifier tagged with what it refers to. The kind
// is resolved once when the member is added, not on every lookup.
type MemberRef struct {
	Kind MemberKind `json:"kind"`
	ID   string     `json:"id"`
}

// EntityRef returns a MemberRef for an external entity.
func EntityRef(id string) MemberRef { return MemberRef{Kind: MemberEntity, ID: id} }

// NetworkRef returns a MemberRef for a nested network.
func NetworkRef(id string) MemberRef { return MemberRef{Kind: MemberNetwork, ID: id} }

// IsNetwork reports whether the member is a nested network.
func (m MemberRef) IsNetwork() bool { return m.Kind == MemberNetwork }

// Link is a derived (or, for custom topologies, stored) edge between two
// members. Multihop links are directed From -> To; the rest are undirected.
type Link struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Touches reports whether id is either endpoint.
func (l Link) Touches(id string) bool { return l.From == id || l.To == id }

// SameEndpoints reports whether l and other join the same pair of members
// regardless of direction.
func (l Link) SameEndpoints(other Link) bool {
	return (l.From == other.From && l.To == other.To) ||
		(l.From == other.To && l.To == other.From)
}

// Network is a user-defined communications group.
type Network struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Type    TopologyType `json:"type"`
	Members []MemberRef  `json:"members"`

	// Hub is only meaningful for star networks. When set it is always a
	// current member.
	Hub *string `json:"hub"`

	// Path overrides Members order for multihop relay chains.
	Path []string `json:"path,omitempty"`

	// Links holds the explicit edge list of custom networks.
	Links []Link `json:"links,omitempty"`

	Config LinkConfig `json:"config"`
}

// MemberIDs returns member identifiers in order.
func (n *Network) MemberIDs() []string {
	out := make([]string, len(n.Members))
	for i, m := range n.Members {
		out[i] = m.ID
	}
	return out
}

// HasMember reports whether id is currently a member.
func (n *Network) HasMember(id string) bool {
	return n.memberIndex(id) >= 0
}

// HubID returns the hub identifier or "" when unset.
func (n *Network) HubID() string {
	if n.Hub == nil {
		return ""
	}
	return *n.Hub
}

func (n *Network) memberIndex(id string) int {
	for i, m := range n.Members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy sharing no mutable state with n.
func (n *Network) Clone() *Network {
	if n == nil {
		return nil
	}
	out := *n
	out.Members = append([]MemberRef(nil), n.Members...)
	if n.Hub != nil {
		hub := *n.Hub
		out.Hub = &hub
	}
	if n.Path != nil {
		out.Path = append([]string(nil), n.Path...)
	}
	if n.Links != nil {
		out.Links = append([]Link(nil), n.Links...)
	}
	return &out
}

// pruneMember drops every reference to id from members, hub, path and links.
// It reports whether anything changed.
func (n *Network) pruneMember(id string) bool {
	changed := false
	if idx := n.memberIndex(id); idx >= 0 {
		n.Members = append(n.Members[:idx], n.Members[idx+1:]...)
		changed = true
	}
	if n.Hub != nil && *n.Hub == id {
		n.Hub = nil
		changed = true
	}
	if n.Path != nil {
		kept := n.Path[:0]
		for _, p := range n.Path {
			if p != id {
				kept = append(kept, p)
			}
		}
		if len(kept) != len(n.Path) {
			changed = true
		}
		n.Path = kept
		if len(kept) == 0 {
			n.Path = nil
		}
	}
	if n.Links != nil {
		kept := n.Links[:0]
		for _, l := range n.Links {
			if !l.Touches(id) {
				kept = append(kept, l)
			}
		}
		if len(kept) != len(n.Links) {
			changed = true
		}
		n.Links = kept
	}
	return changed
}
