package core

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

var (
	ErrNotFound       = errors.New("network not found")
	ErrAlreadyMember  = errors.New("already a member")
	ErrSelfReference  = errors.New("network cannot reference itself")
	ErrCycleDetected  = errors.New("nested membership would create a cycle")
	ErrInvalidHub     = errors.New("hub must be a current member")
	ErrInvalidIndex   = errors.New("member index out of range")
	ErrInvalidType    = errors.New("unknown topology type")
	ErrInvalidConfig  = errors.New("invalid link config")
	ErrWrongTopology  = errors.New("operation not valid for this topology")
	ErrNotMember      = fmt.Errorf("%w: not a member", ErrNotFound)
	ErrDuplicateLink  = errors.New("link already exists")
	ErrInvalidPath    = errors.New("invalid multihop path")
	ErrDuplicateNetID = errors.New("duplicate network id")
)

// NetworkIDPrefix is prepended to generated network identifiers.
const NetworkIDPrefix = "net_"

// TopologyStore owns every Network of an editing session and enforces the
// membership invariants: members are unique, hubs are members, path and
// custom links only reference members, and nested membership is acyclic.
//
// The store is safe for concurrent use. Returned networks are deep copies.
type TopologyStore struct {
	mu sync.RWMutex

	networks map[string]*Network
	order    []string
	nextSeq  int
}

// NewTopologyStore creates an empty store whose first generated id is net_001.
func NewTopologyStore() *TopologyStore {
	return &TopologyStore{
		networks: make(map[string]*Network),
		nextSeq:  1,
	}
}

//
// ---------- Lifecycle ----------
//

// CreateNetwork allocates a new empty mesh network with the default config.
func (s *TopologyStore) CreateNetwork(name string) *Network {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocateIDLocked()
	if name == "" {
		name = "Network " + strconv.Itoa(len(s.order)+1)
	}
	n := &Network{
		ID:      id,
		Name:    name,
		Type:    TopologyMesh,
		Members: []MemberRef{},
		Config:  DefaultLinkConfig(),
	}
	s.networks[id] = n
	s.order = append(s.order, id)
	return n.Clone()
}

// DuplicateNetwork copies a network under a fresh id. The copy is not
// inserted into any parent network.
func (s *TopologyStore) DuplicateNetwork(id string) (*Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.networks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	cp := src.Clone()
	cp.ID = s.allocateIDLocked()
	cp.Name = src.Name + " (copy)"
	s.networks[cp.ID] = cp
	s.order = append(s.order, cp.ID)
	return cp.Clone(), nil
}

// DeleteNetwork removes a network and prunes every reference to it from
// other networks. It returns the ids of networks that were modified by the
// cascade. Deleting an unknown id is a no-op.
func (s *TopologyStore) DeleteNetwork(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.networks[id]; !ok {
		return nil
	}
	delete(s.networks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	var touched []string
	for _, oid := range s.order {
		if s.networks[oid].pruneMember(id) {
			touched = append(touched, oid)
		}
	}
	return touched
}

//
// ---------- Reads ----------
//

// Network returns a copy of the network with the given id.
func (s *TopologyStore) Network(id string) (*Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.networks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return n.Clone(), nil
}

// IsNetwork reports whether id names a live network.
func (s *TopologyStore) IsNetwork(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.networks[id]
	return ok
}

// Networks returns deep copies of all networks in creation order.
func (s *TopologyStore) Networks() []*Network {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Network, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.networks[id].Clone())
	}
	return out
}

// NetworkIDs returns network ids in creation order.
func (s *TopologyStore) NetworkIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of networks.
func (s *TopologyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

//
// ---------- Membership ----------
//

// AddMember appends memberID to the network. A member that names a live
// network is recorded as a nested network and must not create a cycle.
func (s *TopologyStore) AddMember(networkID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	if memberID == networkID {
		return fmt.Errorf("%w: %q", ErrSelfReference, networkID)
	}
	if n.HasMember(memberID) {
		return fmt.Errorf("%w: %q in %q", ErrAlreadyMember, memberID, networkID)
	}

	ref := EntityRef(memberID)
	if _, isNet := s.networks[memberID]; isNet {
		if s.reachableLocked(memberID, networkID) {
			return fmt.Errorf("%w: %q -> %q", ErrCycleDetected, networkID, memberID)
		}
		ref = NetworkRef(memberID)
	}

	// An empty path already follows member order.
	if n.Type == TopologyMultihop && len(n.Path) > 0 {
		n.Path = append(n.Path, memberID)
	}
	n.Members = append(n.Members, ref)
	return nil
}

// RemoveMember drops memberID together with any hub, path or link reference
// to it. Removing a non-member is a no-op.
func (s *TopologyStore) RemoveMember(networkID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	n.pruneMember(memberID)
	return nil
}

// ReorderMembers moves the member at from to position to. A non-empty
// multihop path is resynchronised to the new member order.
func (s *TopologyStore) ReorderMembers(networkID string, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	if from < 0 || from >= len(n.Members) || to < 0 || to >= len(n.Members) {
		return fmt.Errorf("%w: move %d -> %d with %d members", ErrInvalidIndex, from, to, len(n.Members))
	}
	if from != to {
		m := n.Members[from]
		n.Members = append(n.Members[:from], n.Members[from+1:]...)
		n.Members = append(n.Members[:to], append([]MemberRef{m}, n.Members[to:]...)...)
	}
	if len(n.Path) > 0 {
		n.Path = n.MemberIDs()
	}
	return nil
}

//
// ---------- Topology ----------
//

// SetType switches the topology kind and resets the fields that only make
// sense for the old kind.
func (s *TopologyStore) SetType(networkID string, t TopologyType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	n.Type = t
	if t != TopologyStar {
		n.Hub = nil
	}
	n.Path = nil
	if t == TopologyMultihop && len(n.Members) > 0 {
		n.Path = n.MemberIDs()
	}
	if t != TopologyCustom {
		n.Links = nil
	}
	return nil
}

// SetHub sets or clears (nil) the hub. A hub that is not a current member
// is rejected with ErrInvalidHub.
func (s *TopologyStore) SetHub(networkID string, hub *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	if hub == nil {
		n.Hub = nil
		return nil
	}
	if !n.HasMember(*hub) {
		return fmt.Errorf("%w: %q is not in %q", ErrInvalidHub, *hub, networkID)
	}
	h := *hub
	n.Hub = &h
	return nil
}

// SetPath replaces the relay order of a multihop network. The path may list
// a subset of members but may not repeat one. An empty path follows member
// order.
func (s *TopologyStore) SetPath(networkID string, path []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	if n.Type != TopologyMultihop {
		return fmt.Errorf("%w: path on %s network %q", ErrWrongTopology, n.Type, networkID)
	}
	seen := make(map[string]struct{}, len(path))
	for _, id := range path {
		if !n.HasMember(id) {
			return fmt.Errorf("%w: %q is not a member", ErrInvalidPath, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q repeated", ErrInvalidPath, id)
		}
		seen[id] = struct{}{}
	}
	n.Path = nil
	if len(path) > 0 {
		n.Path = append([]string{}, path...)
	}
	return nil
}

// AddCustomLink records an explicit link on a custom network. Links are
// undirected for duplicate detection: a->b and b->a are the same link.
func (s *TopologyStore) AddCustomLink(networkID, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	if n.Type != TopologyCustom {
		return fmt.Errorf("%w: custom link on %s network %q", ErrWrongTopology, n.Type, networkID)
	}
	if from == to {
		return fmt.Errorf("%w: link %q -> %q", ErrSelfReference, from, to)
	}
	for _, id := range []string{from, to} {
		if !n.HasMember(id) {
			return fmt.Errorf("%w: %q in %q", ErrNotMember, id, networkID)
		}
	}
	l := Link{From: from, To: to}
	for _, existing := range n.Links {
		if existing.SameEndpoints(l) {
			return fmt.Errorf("%w: %q <-> %q", ErrDuplicateLink, from, to)
		}
	}
	n.Links = append(n.Links, l)
	return nil
}

// RemoveCustomLink drops the link between from and to in either direction.
func (s *TopologyStore) RemoveCustomLink(networkID, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	target := Link{From: from, To: to}
	for i, l := range n.Links {
		if l.SameEndpoints(target) {
			n.Links = append(n.Links[:i], n.Links[i+1:]...)
			return nil
		}
	}
	return nil
}

//
// ---------- Attributes ----------
//

// RenameNetwork changes the display name.
func (s *TopologyStore) RenameNetwork(networkID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	n.Name = name
	return nil
}

// UpdateConfig replaces the link configuration after validating it.
func (s *TopologyStore) UpdateConfig(networkID string, cfg LinkConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	n.Config = cfg
	return nil
}

// ApplyPreset loads the physical defaults of a link type into the config.
func (s *TopologyStore) ApplyPreset(networkID string, lt LinkType) (LinkConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[networkID]
	if !ok {
		return LinkConfig{}, fmt.Errorf("%w: %q", ErrNotFound, networkID)
	}
	cfg, err := n.Config.WithPreset(lt)
	if err != nil {
		return LinkConfig{}, err
	}
	n.Config = cfg
	return cfg, nil
}

//
// ---------- Bulk load ----------
//

// SetNetworks replaces the whole graph. Member kinds are re-resolved against
// the incoming ids, duplicate or self members are dropped, and dangling hub,
// path and link references are pruned. The load is rejected, leaving the
// current graph untouched, if ids repeat or nesting contains a cycle.
func (s *TopologyStore) SetNetworks(networks []*Network) error {
	loaded := make(map[string]*Network, len(networks))
	order := make([]string, 0, len(networks))
	for _, in := range networks {
		if in == nil {
			continue
		}
		if in.ID == "" {
			return fmt.Errorf("%w: empty network id", ErrDuplicateNetID)
		}
		if _, dup := loaded[in.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateNetID, in.ID)
		}
		loaded[in.ID] = in.Clone()
		order = append(order, in.ID)
	}

	for _, id := range order {
		sanitizeLoaded(loaded[id], loaded)
	}

	if cyc := findCycle(loaded, order); cyc != "" {
		return fmt.Errorf("%w: through %q", ErrCycleDetected, cyc)
	}

	maxSeq := 0
	for _, id := range order {
		if seq, ok := trailingNumber(id); ok && seq > maxSeq {
			maxSeq = seq
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks = loaded
	s.order = order
	s.nextSeq = maxSeq + 1
	return nil
}

// IsAcyclic reports whether nested membership currently forms a DAG.
func (s *TopologyStore) IsAcyclic() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findCycle(s.networks, s.order) == ""
}

//
// ---------- Internals ----------
//

// reachableLocked runs a breadth-first search from start over nested
// network members and reports whether target is reachable. Entity members
// have no outgoing edges and are never expanded.
func (s *TopologyStore) reachableLocked(start, target string) bool {
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		n, ok := s.networks[cur]
		if !ok {
			continue
		}
		for _, m := range n.Members {
			if !m.IsNetwork() || visited[m.ID] {
				continue
			}
			visited[m.ID] = true
			queue = append(queue, m.ID)
		}
	}
	return false
}

func (s *TopologyStore) allocateIDLocked() string {
	for {
		id := fmt.Sprintf("%s%03d", NetworkIDPrefix, s.nextSeq)
		s.nextSeq++
		if !s.idInUseLocked(id) {
			return id
		}
	}
}

// idInUseLocked also checks entity members so a new network id never
// shadows an entity that happens to share the id format.
func (s *TopologyStore) idInUseLocked(id string) bool {
	if _, ok := s.networks[id]; ok {
		return true
	}
	for _, n := range s.networks {
		if n.HasMember(id) {
			return true
		}
	}
	return false
}

func sanitizeLoaded(n *Network, all map[string]*Network) {
	if !n.Type.Valid() {
		n.Type = TopologyMesh
	}
	seen := make(map[string]bool, len(n.Members))
	members := make([]MemberRef, 0, len(n.Members))
	for _, m := range n.Members {
		if m.ID == "" || m.ID == n.ID || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		if _, isNet := all[m.ID]; isNet {
			members = append(members, NetworkRef(m.ID))
		} else {
			members = append(members, EntityRef(m.ID))
		}
	}
	n.Members = members

	if n.Hub != nil && (n.Type != TopologyStar || !seen[*n.Hub]) {
		n.Hub = nil
	}
	if n.Type != TopologyMultihop {
		n.Path = nil
	} else if n.Path != nil {
		kept := make([]string, 0, len(n.Path))
		inPath := make(map[string]bool, len(n.Path))
		for _, p := range n.Path {
			if seen[p] && !inPath[p] {
				inPath[p] = true
				kept = append(kept, p)
			}
		}
		n.Path = nil
		if len(kept) > 0 {
			n.Path = kept
		}
	}
	if n.Type != TopologyCustom {
		n.Links = nil
	} else {
		kept := make([]Link, 0, len(n.Links))
		for _, l := range n.Links {
			if !seen[l.From] || !seen[l.To] || l.From == l.To {
				continue
			}
			dup := false
			for _, k := range kept {
				if k.SameEndpoints(l) {
					dup = true
					break
				}
			}
			if !dup {
				kept = append(kept, l)
			}
		}
		n.Links = kept
	}
	if n.Config.LinkType == "" {
		n.Config = DefaultLinkConfig()
	}
}

// findCycle returns the id of a network that lies on a nesting cycle, or ""
// if the membership graph is acyclic. Uses three-colour DFS.
func findCycle(networks map[string]*Network, order []string) string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(networks))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = grey
		if n, ok := networks[id]; ok {
			for _, m := range n.Members {
				if !m.IsNetwork() {
					continue
				}
				switch color[m.ID] {
				case grey:
					return m.ID
				case white:
					if c := visit(m.ID); c != "" {
						return c
					}
				}
			}
		}
		color[id] = black
		return ""
	}

	ids := append([]string(nil), order...)
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			if c := visit(id); c != "" {
				return c
			}
		}
	}
	return ""
}

// trailingNumber parses the decimal suffix of id, e.g. 12 for "net_012".
func trailingNumber(id string) (int, bool) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return 0, false
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return 0, false
	}
	return n, true
}
