package core

import "testing"

type mapDirectory map[string]Resolved

func (d mapDirectory) Lookup(id string) (Resolved, bool) {
	r, ok := d[id]
	return r, ok
}

func TestResolveOrder(t *testing.T) {
	s := NewTopologyStore()
	n := s.CreateNetwork("Strike Package")
	dir := mapDirectory{
		"f16-1":  {Name: "Viper 1", Kind: "aircraft", Team: "blue"},
		n.ID:     {Name: "shadowed", Kind: "aircraft", Team: "red"},
		"anon-1": {Kind: "ship"},
	}

	if got, want := Resolve(s, dir, n.ID), (Resolved{Name: "Strike Package", Kind: KindNetwork, Team: TeamNeutral}); got != want {
		t.Fatalf("network = %+v, want %+v", got, want)
	}
	if got, want := Resolve(s, dir, "f16-1"), dir["f16-1"]; got != want {
		t.Fatalf("entity = %+v, want %+v", got, want)
	}
	if got, want := Resolve(s, dir, "anon-1"), (Resolved{Name: "anon-1", Kind: "ship", Team: TeamNeutral}); got != want {
		t.Fatalf("partial entity = %+v, want %+v", got, want)
	}
	if got, want := Resolve(s, dir, "ghost"), (Resolved{Name: "ghost", Kind: KindUnknown, Team: TeamNeutral}); got != want {
		t.Fatalf("unknown = %+v, want %+v", got, want)
	}
	if got := Resolve(nil, nil, "x"); got.Kind != KindUnknown {
		t.Fatalf("nil lookups = %+v", got)
	}
}
