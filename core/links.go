package core

// ComputeLinks derives the edges of a network from its topology type.
//
//   - mesh: every unordered pair of members, in member order.
//   - star: hub to every other member; nothing when no hub is set.
//   - multihop: consecutive pairs along Path, or along Members when Path
//     is empty. Links are directed along the relay chain.
//   - custom: the stored link list as-is.
//
// The result never aliases n.
func ComputeLinks(n *Network) []Link {
	if n == nil {
		return nil
	}
	switch n.Type {
	case TopologyMesh:
		ids := n.MemberIDs()
		out := make([]Link, 0, len(ids)*(len(ids)-1)/2+1)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				out = append(out, Link{From: ids[i], To: ids[j]})
			}
		}
		return out

	case TopologyStar:
		if n.Hub == nil {
			return []Link{}
		}
		hub := *n.Hub
		out := make([]Link, 0, len(n.Members))
		for _, m := range n.Members {
			if m.ID != hub {
				out = append(out, Link{From: hub, To: m.ID})
			}
		}
		return out

	case TopologyMultihop:
		chain := n.Path
		if len(chain) == 0 {
			chain = n.MemberIDs()
		}
		if len(chain) < 2 {
			return []Link{}
		}
		out := make([]Link, 0, len(chain)-1)
		for k := 0; k+1 < len(chain); k++ {
			out = append(out, Link{From: chain[k], To: chain[k+1]})
		}
		return out

	case TopologyCustom:
		return append([]Link{}, n.Links...)
	}
	return []Link{}
}

// Stats aggregates link and membership figures over a set of networks.
type Stats struct {
	Networks           int     `json:"networks"`
	TotalLinks         int     `json:"totalLinks"`
	TotalBandwidthMbps float64 `json:"totalBandwidth_mbps"`
	UniqueEntities     int     `json:"uniqueEntities"`
}

// ComputeStats bundles the aggregate helpers into one pass.
func ComputeStats(networks []*Network) Stats {
	return Stats{
		Networks:           len(networks),
		TotalLinks:         TotalLinkCount(networks),
		TotalBandwidthMbps: TotalBandwidthMbps(networks),
		UniqueEntities:     UniqueEntityCount(networks),
	}
}

// TotalLinkCount sums derived link counts across networks.
func TotalLinkCount(networks []*Network) int {
	total := 0
	for _, n := range networks {
		total += len(ComputeLinks(n))
	}
	return total
}

// TotalBandwidthMbps sums links x configured bandwidth across networks.
func TotalBandwidthMbps(networks []*Network) float64 {
	total := 0.0
	for _, n := range networks {
		if n == nil {
			continue
		}
		total += float64(len(ComputeLinks(n))) * n.Config.BandwidthMbps
	}
	return total
}

// UniqueEntityCount counts distinct entity members. Nested networks are
// not entities and are skipped.
func UniqueEntityCount(networks []*Network) int {
	seen := make(map[string]struct{})
	for _, n := range networks {
		if n == nil {
			continue
		}
		for _, m := range n.Members {
			if !m.IsNetwork() {
				seen[m.ID] = struct{}{}
			}
		}
	}
	return len(seen)
}
