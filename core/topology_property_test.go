package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const propNetworks = 6

// applyOp decodes op into one store mutation over the ids in nets. Deleted
// networks are replaced so the pool size stays fixed.
func applyOp(s *TopologyStore, nets []string, op int) error {
	kind := op % 5
	a := (op / 5) % len(nets)
	b := (op / 30) % len(nets)

	switch kind {
	case 0:
		return s.AddMember(nets[a], nets[b])
	case 1:
		s.RemoveMember(nets[a], nets[b])
	case 2:
		return s.AddMember(nets[a], fmt.Sprintf("entity-%d", b))
	case 3:
		s.DeleteNetwork(nets[a])
		nets[a] = s.CreateNetwork("").ID
	case 4:
		n, err := s.Network(nets[a])
		if err != nil || len(n.Members) < 2 {
			return nil
		}
		ids := n.MemberIDs()
		_ = s.AddCustomLink(nets[a], ids[b%len(ids)], ids[(b+1)%len(ids)])
	}
	return nil
}

func TestTopologyInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("nested membership stays acyclic", prop.ForAll(
		func(ops []int) bool {
			s := NewTopologyStore()
			nets := make([]string, propNetworks)
			for i := range nets {
				nets[i] = s.CreateNetwork("").ID
			}
			for _, op := range ops {
				err := applyOp(s, nets, op)
				if err != nil &&
					!errors.Is(err, ErrCycleDetected) &&
					!errors.Is(err, ErrSelfReference) &&
					!errors.Is(err, ErrAlreadyMember) {
					return false
				}
				if !s.IsAcyclic() {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(40, gen.IntRange(0, 1<<16)),
	))

	properties.Property("no dangling references after deletes", prop.ForAll(
		func(ops []int) bool {
			s := NewTopologyStore()
			nets := make([]string, propNetworks)
			for i := range nets {
				nets[i] = s.CreateNetwork("").ID
			}
			for i, id := range nets {
				_ = s.SetType(id, []TopologyType{TopologyMesh, TopologyStar, TopologyMultihop, TopologyCustom}[i%4])
				_ = s.AddMember(id, "anchor")
			}
			for _, op := range ops {
				_ = applyOp(s, nets, op)
			}
			for _, n := range s.Networks() {
				for _, m := range n.Members {
					if m.IsNetwork() && !s.IsNetwork(m.ID) {
						return false
					}
				}
				if n.Hub != nil && !n.HasMember(*n.Hub) {
					return false
				}
				for _, p := range n.Path {
					if !n.HasMember(p) {
						return false
					}
				}
				for _, l := range n.Links {
					if !n.HasMember(l.From) || !n.HasMember(l.To) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(40, gen.IntRange(0, 1<<16)),
	))

	properties.Property("mesh has n(n-1)/2 links", prop.ForAll(
		func(n int) bool {
			ids := make([]string, n)
			for i := range ids {
				ids[i] = fmt.Sprintf("m%d", i)
			}
			return len(ComputeLinks(networkWith(TopologyMesh, ids...))) == n*(n-1)/2
		},
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}
