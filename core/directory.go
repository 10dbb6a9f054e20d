package core

// Resolution kinds and teams used when a member is not an external entity.
const (
	KindNetwork = "network"
	KindUnknown = "unknown"
	TeamNeutral = "neutral"
)

// Resolved is the display identity of a member.
type Resolved struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Team string `json:"team"`
}

// EntityDirectory looks up external scenario entities by id.
type EntityDirectory interface {
	Lookup(id string) (Resolved, bool)
}

// NetworkLookup is the part of TopologyStore used for resolution.
type NetworkLookup interface {
	Network(id string) (*Network, error)
}

// Resolve names a member: networks first, then the entity directory, then
// a fallback carrying the raw id. It never fails. dir may be nil.
func Resolve(networks NetworkLookup, dir EntityDirectory, memberID string) Resolved {
	if networks != nil {
		if n, err := networks.Network(memberID); err == nil {
			return Resolved{Name: n.Name, Kind: KindNetwork, Team: TeamNeutral}
		}
	}
	if dir != nil {
		if r, ok := dir.Lookup(memberID); ok {
			if r.Name == "" {
				r.Name = memberID
			}
			if r.Team == "" {
				r.Team = TeamNeutral
			}
			return r
		}
	}
	return Resolved{Name: memberID, Kind: KindUnknown, Team: TeamNeutral}
}
