// Package designer hosts the topology service: the network graph, the
// per-network position caches and the layout simulator behind one lock.
package designer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/internal/logging"
	"github.com/signalsfoundry/comms-designer/internal/observability"
	"github.com/signalsfoundry/comms-designer/kb"
	"github.com/signalsfoundry/comms-designer/timectrl"
)

// ErrInvalidPosition rejects non-finite drag coordinates.
var ErrInvalidPosition = errors.New("invalid position")

// TopologyMetricsRecorder receives aggregate topology gauges after every
// mutation. *observability.NBICollector satisfies it.
type TopologyMetricsRecorder interface {
	SetTopologyCounts(networks, links, entities int, bandwidthMbps float64)
	SetLinkMargin(networkID string, marginDB float64)
	ForgetNetwork(networkID string)
	ResetLinkMargins()
}

// EntityLoader is implemented by directories that accept the entity
// section of a scenario file.
type EntityLoader interface {
	LoadRecords(recs []core.EntityRecord) (int, error)
}

// EntityExporter is implemented by directories that can write their
// entities back into a scenario file.
type EntityExporter interface {
	Records() []core.EntityRecord
}

// EntityWatcher is implemented by directories that report entity changes.
// Networks holding a changed entity are announced as updated, since their
// resolved member names may differ.
type EntityWatcher interface {
	Subscribe(fn func(kb.Event)) (unsubscribe func())
}

// Service is the single topology service. All mutations and all layout
// ticks serialise on mu.
type Service struct {
	mu sync.Mutex

	store     *core.TopologyStore
	dir       core.EntityDirectory
	positions map[string]core.Positions
	params    core.LayoutParams

	layout *LayoutSimulator
	events *EventBus

	log           logging.Logger
	metrics       TopologyMetricsRecorder
	layoutMetrics *observability.LayoutCollector
	tracer        trace.Tracer

	tickInterval time.Duration
	tickMode     timectrl.Mode

	unwatch func()
}

// Option customises Service construction.
type Option func(*Service)

// WithDirectory attaches the entity directory used by Resolve and by
// scenario import and export.
func WithDirectory(dir core.EntityDirectory) Option {
	return func(s *Service) {
		s.dir = dir
	}
}

// WithMetricsRecorder attaches an optional recorder for topology gauges.
func WithMetricsRecorder(m TopologyMetricsRecorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLayoutMetrics attaches layout tick and run metrics.
func WithLayoutMetrics(c *observability.LayoutCollector) Option {
	return func(s *Service) {
		s.layoutMetrics = c
	}
}

// WithLayoutParams overrides canvas geometry and force constants.
func WithLayoutParams(p core.LayoutParams) Option {
	return func(s *Service) {
		s.params = p
	}
}

// WithTicking sets the layout tick pacing.
func WithTicking(interval time.Duration, mode timectrl.Mode) Option {
	return func(s *Service) {
		s.tickInterval = interval
		s.tickMode = mode
	}
}

// WithEventBus shares an existing bus instead of creating one.
func WithEventBus(bus *EventBus) Option {
	return func(s *Service) {
		if bus != nil {
			s.events = bus
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService wires a service around store. A nil store starts empty and a
// nil log discards output.
func NewService(store *core.TopologyStore, log logging.Logger, opts ...Option) *Service {
	if store == nil {
		store = core.NewTopologyStore()
	}
	if log == nil {
		log = logging.Noop()
	}
	s := &Service{
		store:        store,
		positions:    make(map[string]core.Positions),
		params:       core.DefaultLayoutParams(),
		events:       NewEventBus(),
		log:          log,
		tracer:       observability.Tracer(),
		tickInterval: 30 * time.Millisecond,
		tickMode:     timectrl.RealTime,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.layout = newLayoutSimulator(s, s.tickInterval, s.tickMode, s.layoutMetrics)
	if w, ok := s.dir.(EntityWatcher); ok {
		s.unwatch = w.Subscribe(s.entityChanged)
	}

	s.mu.Lock()
	s.updateMetricsLocked()
	s.mu.Unlock()
	return s
}

// Store exposes the underlying topology store. Mutating it directly skips
// position maintenance, metrics and events.
func (s *Service) Store() *core.TopologyStore { return s.store }

// Layout exposes the layout simulator.
func (s *Service) Layout() *LayoutSimulator { return s.layout }

// Params returns the layout parameters in use.
func (s *Service) Params() core.LayoutParams { return s.params }

// Subscribe attaches a listener to topology and layout events.
func (s *Service) Subscribe(buffer int) (<-chan Event, func()) {
	return s.events.Subscribe(buffer)
}

// Watchers reports the number of attached event subscribers.
func (s *Service) Watchers() int {
	return s.events.Len()
}

// Close detaches from the directory, cancels all layout runs and waits
// for them to stop.
func (s *Service) Close() {
	if s.unwatch != nil {
		s.unwatch()
	}
	s.layout.close()
}

func (s *Service) entityChanged(e kb.Event) {
	s.mu.Lock()
	var ids []string
	for _, n := range s.store.Networks() {
		if n.HasMember(e.Entity.ID) {
			ids = append(ids, n.ID)
		}
	}
	s.mu.Unlock()
	s.publish(EventNetworkUpdated, ids...)
}

// mutate runs fn under the service lock inside a span, refreshes the
// topology gauges on success and logs the outcome.
func (s *Service) mutate(ctx context.Context, op, networkID string, fn func() error) error {
	ctx, span := s.tracer.Start(ctx, "designer."+op,
		trace.WithAttributes(attribute.String("commnet.network_id", networkID)))
	defer span.End()
	log := logging.FromContextOr(ctx, s.log)

	s.mu.Lock()
	err := fn()
	if err == nil {
		s.updateMetricsLocked()
	}
	s.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		log.Debug(ctx, "topology change rejected",
			logging.String("op", op),
			logging.String("network_id", networkID),
			logging.Err(err),
		)
		return err
	}
	log.Info(ctx, "topology changed",
		logging.String("op", op),
		logging.String("network_id", networkID),
	)
	return nil
}

func (s *Service) updateMetricsLocked() {
	if s.metrics == nil {
		return
	}
	nets := s.store.Networks()
	st := core.ComputeStats(nets)
	s.metrics.SetTopologyCounts(st.Networks, st.TotalLinks, st.UniqueEntities, st.TotalBandwidthMbps)
	for _, n := range nets {
		s.metrics.SetLinkMargin(n.ID, core.ComputeLinkBudget(n.Config).MarginDB)
	}
}

func (s *Service) publish(t EventType, networkIDs ...string) {
	for _, id := range networkIDs {
		s.events.Publish(Event{Type: t, NetworkID: id})
	}
}

// replaceLocked seeds positions for members that have none.
func (s *Service) replaceLocked(networkID string) {
	n, err := s.store.Network(networkID)
	if err != nil {
		return
	}
	s.positions[networkID] = core.InitialPlacement(n, s.positions[networkID], s.params)
}

//
// ---------- Lifecycle ----------
//

// CreateNetwork adds an empty mesh network. An empty name is replaced by
// "Network N".
func (s *Service) CreateNetwork(ctx context.Context, name string) (*core.Network, error) {
	var created *core.Network
	err := s.mutate(ctx, "CreateNetwork", "", func() error {
		created = s.store.CreateNetwork(name)
		s.positions[created.ID] = core.Positions{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventNetworkCreated, created.ID)
	return created, nil
}

// DuplicateNetwork copies a network under a new id. The copy has no cached
// positions.
func (s *Service) DuplicateNetwork(ctx context.Context, id string) (*core.Network, error) {
	var cp *core.Network
	err := s.mutate(ctx, "DuplicateNetwork", id, func() error {
		var err error
		cp, err = s.store.DuplicateNetwork(id)
		if err != nil {
			return err
		}
		s.positions[cp.ID] = core.Positions{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventNetworkCreated, cp.ID)
	return cp, nil
}

// DeleteNetwork removes a network, stops its layout and prunes it from
// every parent network and their position caches. Deleting an unknown id
// is a no-op.
func (s *Service) DeleteNetwork(ctx context.Context, id string) error {
	var (
		touched []string
		found   bool
	)
	err := s.mutate(ctx, "DeleteNetwork", id, func() error {
		if found = s.store.IsNetwork(id); !found {
			return nil
		}
		s.layout.cancelLocked(id)
		touched = s.store.DeleteNetwork(id)
		delete(s.positions, id)
		for _, parent := range touched {
			delete(s.positions[parent], id)
		}
		if s.metrics != nil {
			s.metrics.ForgetNetwork(id)
		}
		return nil
	})
	if err != nil || !found {
		return err
	}
	s.publish(EventNetworkDeleted, id)
	s.publish(EventNetworkUpdated, touched...)
	return nil
}

// RenameNetwork changes a network's display name.
func (s *Service) RenameNetwork(ctx context.Context, id, name string) error {
	return s.update(ctx, "RenameNetwork", id, func() error {
		return s.store.RenameNetwork(id, name)
	})
}

// update is mutate followed by an EventNetworkUpdated for id.
func (s *Service) update(ctx context.Context, op, id string, fn func() error) error {
	if err := s.mutate(ctx, op, id, fn); err != nil {
		return err
	}
	s.publish(EventNetworkUpdated, id)
	return nil
}

//
// ---------- Membership and structure ----------
//

// AddMember adds memberID to a network and places it on the canvas.
func (s *Service) AddMember(ctx context.Context, networkID, memberID string) error {
	return s.update(ctx, "AddMember", networkID, func() error {
		if err := s.store.AddMember(networkID, memberID); err != nil {
			return err
		}
		s.replaceLocked(networkID)
		return nil
	})
}

// RemoveMember drops memberID and its cached position.
func (s *Service) RemoveMember(ctx context.Context, networkID, memberID string) error {
	return s.update(ctx, "RemoveMember", networkID, func() error {
		if err := s.store.RemoveMember(networkID, memberID); err != nil {
			return err
		}
		delete(s.positions[networkID], memberID)
		return nil
	})
}

// ReorderMembers moves the member at index from to index to.
func (s *Service) ReorderMembers(ctx context.Context, networkID string, from, to int) error {
	return s.update(ctx, "ReorderMembers", networkID, func() error {
		return s.store.ReorderMembers(networkID, from, to)
	})
}

// SetType switches topology. Cached positions are discarded and members
// are placed afresh for the new shape.
func (s *Service) SetType(ctx context.Context, networkID string, t core.TopologyType) error {
	return s.update(ctx, "SetType", networkID, func() error {
		if err := s.store.SetType(networkID, t); err != nil {
			return err
		}
		delete(s.positions, networkID)
		s.replaceLocked(networkID)
		return nil
	})
}

// SetHub sets or clears (nil) the star hub.
func (s *Service) SetHub(ctx context.Context, networkID string, hub *string) error {
	return s.update(ctx, "SetHub", networkID, func() error {
		return s.store.SetHub(networkID, hub)
	})
}

// SetPath replaces the relay order of a multihop network.
func (s *Service) SetPath(ctx context.Context, networkID string, path []string) error {
	return s.update(ctx, "SetPath", networkID, func() error {
		return s.store.SetPath(networkID, path)
	})
}

// AddCustomLink adds an explicit link to a custom network.
func (s *Service) AddCustomLink(ctx context.Context, networkID, from, to string) error {
	return s.update(ctx, "AddCustomLink", networkID, func() error {
		return s.store.AddCustomLink(networkID, from, to)
	})
}

// RemoveCustomLink removes an explicit link in either direction.
func (s *Service) RemoveCustomLink(ctx context.Context, networkID, from, to string) error {
	return s.update(ctx, "RemoveCustomLink", networkID, func() error {
		return s.store.RemoveCustomLink(networkID, from, to)
	})
}

// UpdateConfig replaces a network's link configuration.
func (s *Service) UpdateConfig(ctx context.Context, networkID string, cfg core.LinkConfig) error {
	return s.update(ctx, "UpdateConfig", networkID, func() error {
		return s.store.UpdateConfig(networkID, cfg)
	})
}

// ApplyPreset loads link-type defaults into a network's configuration.
func (s *Service) ApplyPreset(ctx context.Context, networkID string, lt core.LinkType) (core.LinkConfig, error) {
	var cfg core.LinkConfig
	err := s.update(ctx, "ApplyPreset", networkID, func() error {
		var err error
		cfg, err = s.store.ApplyPreset(networkID, lt)
		return err
	})
	return cfg, err
}

//
// ---------- Bulk ----------
//

// GetNetworks returns copies of every network in creation order.
func (s *Service) GetNetworks() []*core.Network {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Networks()
}

// Network returns a copy of one network.
func (s *Service) Network(id string) (*core.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Network(id)
}

// SetNetworks replaces the whole graph. Running layouts stop and every
// position cache is dropped.
func (s *Service) SetNetworks(ctx context.Context, networks []*core.Network) error {
	err := s.mutate(ctx, "SetNetworks", "", func() error {
		if err := s.store.SetNetworks(networks); err != nil {
			return err
		}
		s.layout.cancelAllLocked()
		s.positions = make(map[string]core.Positions)
		if s.metrics != nil {
			s.metrics.ResetLinkMargins()
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(EventNetworksLoaded, "")
	return nil
}

// LoadScenario decodes a scenario file, hands its entities to the
// directory when it accepts them, and replaces the graph.
func (s *Service) LoadScenario(ctx context.Context, r io.Reader, format core.ScenarioFormat) (*core.Scenario, error) {
	sc, err := core.LoadScenario(r, format)
	if err != nil {
		return nil, err
	}
	if loader, ok := s.dir.(EntityLoader); ok && len(sc.Entities) > 0 {
		n, err := loader.LoadRecords(sc.Entities)
		if err != nil {
			return nil, err
		}
		s.log.Debug(ctx, "scenario entities loaded", logging.Int("entities", n))
	}
	if err := s.SetNetworks(ctx, sc.Networks); err != nil {
		return nil, err
	}
	sc.Networks = s.GetNetworks()
	return sc, nil
}

// SaveScenario writes the current graph and, when the directory can
// export them, its entities.
func (s *Service) SaveScenario(w io.Writer, format core.ScenarioFormat) error {
	sc := &core.Scenario{Networks: s.GetNetworks()}
	if exp, ok := s.dir.(EntityExporter); ok {
		sc.Entities = exp.Records()
	}
	return core.SaveScenario(w, sc, format)
}

//
// ---------- Derived views ----------
//

// Links derives the links of one network.
func (s *Service) Links(networkID string) ([]core.Link, error) {
	n, err := s.Network(networkID)
	if err != nil {
		return nil, err
	}
	return core.ComputeLinks(n), nil
}

// LinkBudget evaluates one network's RF budget at maximum range.
func (s *Service) LinkBudget(networkID string) (core.LinkBudget, error) {
	n, err := s.Network(networkID)
	if err != nil {
		return core.LinkBudget{}, err
	}
	return core.ComputeLinkBudget(n.Config), nil
}

// Report bundles links, bandwidth and budget for one network.
func (s *Service) Report(networkID string) (core.NetworkReport, error) {
	n, err := s.Network(networkID)
	if err != nil {
		return core.NetworkReport{}, err
	}
	return core.BuildNetworkReport(n), nil
}

// Stats returns the global aggregates.
func (s *Service) Stats() core.Stats {
	return core.ComputeStats(s.GetNetworks())
}

// Resolve names a member for display.
func (s *Service) Resolve(memberID string) core.Resolved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Resolve(s.store, s.dir, memberID)
}

//
// ---------- Positions ----------
//

// Positions returns the cached positions of a network, placing any member
// that has none yet.
func (s *Service) Positions(networkID string) (core.Positions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.store.IsNetwork(networkID) {
		return nil, fmt.Errorf("%w: %q", core.ErrNotFound, networkID)
	}
	s.replaceLocked(networkID)
	return s.positions[networkID].Clone(), nil
}

// SetPosition pins one member to pt, as when the user drags it. A running
// layout continues from the new point.
func (s *Service) SetPosition(ctx context.Context, networkID, memberID string, pt core.Point) error {
	if !pt.IsFinite() {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidPosition, pt.X, pt.Y)
	}
	err := s.mutate(ctx, "SetPosition", networkID, func() error {
		n, err := s.store.Network(networkID)
		if err != nil {
			return err
		}
		if !n.HasMember(memberID) {
			return fmt.Errorf("%w: %q in %q", core.ErrNotMember, memberID, networkID)
		}
		s.replaceLocked(networkID)
		s.positions[networkID][memberID] = pt
		return nil
	})
	if err != nil {
		return err
	}
	s.publishPositions(networkID)
	return nil
}

// ZoomToFit rescales a network's cached positions onto the canvas and
// returns the result.
func (s *Service) ZoomToFit(ctx context.Context, networkID string) (core.Positions, error) {
	var out core.Positions
	err := s.mutate(ctx, "ZoomToFit", networkID, func() error {
		if !s.store.IsNetwork(networkID) {
			return fmt.Errorf("%w: %q", core.ErrNotFound, networkID)
		}
		s.replaceLocked(networkID)
		s.positions[networkID] = core.ZoomToFit(s.positions[networkID], s.params)
		out = s.positions[networkID].Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishPositions(networkID)
	return out, nil
}

// publishPositions announces a manual position change. The frame is never
// Done; only the layout simulator ends a run.
func (s *Service) publishPositions(networkID string) {
	s.mu.Lock()
	frame := LayoutFrame{
		NetworkID: networkID,
		Positions: s.positions[networkID].Clone(),
	}
	if run := s.layout.runs[networkID]; run != nil {
		frame.Tick = run.tick
	}
	s.mu.Unlock()
	s.events.Publish(Event{Type: EventPositionsUpdate, NetworkID: networkID, Frame: &frame})
}

//
// ---------- Layout ----------
//

// StartLayout begins (or restarts) the force-directed layout of a network.
func (s *Service) StartLayout(ctx context.Context, networkID string) error {
	return s.layout.Start(ctx, networkID)
}

// CancelLayout stops a network's layout. It reports whether one was running.
func (s *Service) CancelLayout(networkID string) bool {
	return s.layout.Cancel(networkID)
}

// LayoutStatus reports IDLE or RUNNING for a network.
func (s *Service) LayoutStatus(networkID string) (LayoutStatus, error) {
	return s.layout.Status(networkID)
}

// WaitLayout blocks until the network's current layout run ends.
func (s *Service) WaitLayout(ctx context.Context, networkID string) error {
	return s.layout.Wait(ctx, networkID)
}
