package designer

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/internal/observability"
	"github.com/signalsfoundry/comms-designer/kb"
	"github.com/signalsfoundry/comms-designer/model"
	"github.com/signalsfoundry/comms-designer/timectrl"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithTicking(time.Millisecond, timectrl.Accelerated)}
	s := NewService(nil, nil, append(base, opts...)...)
	t.Cleanup(s.Close)
	return s
}

func meshOf(t *testing.T, s *Service, members ...string) *core.Network {
	t.Helper()
	ctx := context.Background()
	n, err := s.CreateNetwork(ctx, "")
	require.NoError(t, err)
	for _, m := range members {
		require.NoError(t, s.AddMember(ctx, n.ID, m))
	}
	out, err := s.Network(n.ID)
	require.NoError(t, err)
	return out
}

func TestServiceMembershipPlacesMembers(t *testing.T) {
	s := newTestService(t)
	n := meshOf(t, s, "a", "b", "c", "d")

	links, err := s.Links(n.ID)
	require.NoError(t, err)
	assert.Len(t, links, 6)

	pos, err := s.Positions(n.ID)
	require.NoError(t, err)
	require.Len(t, pos, 4)
	p := s.Params()
	for id, pt := range pos {
		assert.InDelta(t, 0.35*math.Min(p.Width, p.Height), pt.DistanceTo(p.Center()), 1e-9, "member %s", id)
	}

	require.NoError(t, s.RemoveMember(context.Background(), n.ID, "b"))
	pos, err = s.Positions(n.ID)
	require.NoError(t, err)
	assert.NotContains(t, pos, "b")
	assert.Len(t, pos, 3)
}

func TestServiceRejectsCycles(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	parent := meshOf(t, s)
	child := meshOf(t, s)

	require.NoError(t, s.AddMember(ctx, parent.ID, child.ID))
	err := s.AddMember(ctx, child.ID, parent.ID)
	require.ErrorIs(t, err, core.ErrCycleDetected)
	require.ErrorIs(t, s.AddMember(ctx, parent.ID, parent.ID), core.ErrSelfReference)
	require.ErrorIs(t, s.AddMember(ctx, parent.ID, child.ID), core.ErrAlreadyMember)
	require.ErrorIs(t, s.AddMember(ctx, "net_999", "x"), core.ErrNotFound)

	got, err := s.Network(child.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Members)
	assert.True(t, s.Store().IsAcyclic())
}

func TestServiceDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	child := meshOf(t, s, "x", "y")
	parent := meshOf(t, s, "a", child.ID)

	_, err := s.Positions(parent.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteNetwork(ctx, child.ID))

	events, unsubscribe := s.Subscribe(8)
	defer unsubscribe()
	require.NoError(t, s.DeleteNetwork(ctx, child.ID))
	require.NoError(t, s.RemoveMember(ctx, parent.ID, child.ID))
	require.ErrorIs(t, s.RemoveMember(ctx, "net_404", "a"), core.ErrNotFound)
	for drained := false; !drained; {
		select {
		case ev := <-events:
			assert.NotEqual(t, EventNetworkDeleted, ev.Type, "repeat delete published %+v", ev)
		default:
			drained = true
		}
	}

	got, err := s.Network(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.MemberIDs())

	pos, err := s.Positions(parent.ID)
	require.NoError(t, err)
	assert.NotContains(t, pos, child.ID)

	_, err = s.Positions(child.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestServiceSetTypeReseedsPositions(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	n := meshOf(t, s, "a", "b", "c")

	require.NoError(t, s.SetPosition(ctx, n.ID, "a", core.Point{X: 123, Y: 456}))
	require.NoError(t, s.SetType(ctx, n.ID, core.TopologyMultihop))

	pos, err := s.Positions(n.ID)
	require.NoError(t, err)
	p := s.Params()
	assert.Equal(t, core.Point{X: p.Padding, Y: p.Height / 2}, pos["a"])
	assert.Equal(t, core.Point{X: p.Width - p.Padding, Y: p.Height / 2}, pos["c"])

	hub := "b"
	require.NoError(t, s.SetType(ctx, n.ID, core.TopologyStar))
	require.NoError(t, s.SetHub(ctx, n.ID, &hub))
	links, err := s.Links(n.ID)
	require.NoError(t, err)
	assert.Equal(t, []core.Link{{From: "b", To: "a"}, {From: "b", To: "c"}}, links)

	require.ErrorIs(t, s.SetType(ctx, n.ID, core.TopologyType("ring")), core.ErrInvalidType)
}

func TestServiceDuplicateStartsWithoutPositions(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	n := meshOf(t, s, "a", "b")
	require.NoError(t, s.RenameNetwork(ctx, n.ID, "Alpha"))

	cp, err := s.DuplicateNetwork(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha (copy)", cp.Name)
	assert.Equal(t, n.MemberIDs(), cp.MemberIDs())

	s.mu.Lock()
	cached := len(s.positions[cp.ID])
	s.mu.Unlock()
	assert.Zero(t, cached)
}

func TestServiceCustomLinksAndConfig(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	n := meshOf(t, s, "a", "b", "c")

	require.ErrorIs(t, s.AddCustomLink(ctx, n.ID, "a", "b"), core.ErrWrongTopology)
	require.NoError(t, s.SetType(ctx, n.ID, core.TopologyCustom))
	require.NoError(t, s.AddCustomLink(ctx, n.ID, "a", "b"))
	require.ErrorIs(t, s.AddCustomLink(ctx, n.ID, "b", "a"), core.ErrDuplicateLink)
	require.NoError(t, s.RemoveCustomLink(ctx, n.ID, "b", "a"))

	cfg, err := s.ApplyPreset(ctx, n.ID, core.LinkSatcom)
	require.NoError(t, err)
	assert.Equal(t, core.LinkSatcom, cfg.LinkType)

	bad := core.DefaultLinkConfig()
	bad.Priority = 11
	require.ErrorIs(t, s.UpdateConfig(ctx, n.ID, bad), core.ErrInvalidConfig)

	budget, err := s.LinkBudget(n.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ComputeLinkBudget(cfg), budget)
}

func TestServiceRecordsTopologyMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	collector, err := observability.NewNBICollector(reg)
	require.NoError(t, err)

	s := newTestService(t, WithMetricsRecorder(collector))
	a := meshOf(t, s, "x", "y", "z")
	b := meshOf(t, s, "x", "w")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.TopologyNetworks))
	assert.Equal(t, 4.0, testutil.ToFloat64(collector.TopologyLinks))
	assert.Equal(t, 4.0, testutil.ToFloat64(collector.TopologyEntities))
	assert.Equal(t, 40.0, testutil.ToFloat64(collector.TopologyBandwidth))
	margin := core.ComputeLinkBudget(core.DefaultLinkConfig()).MarginDB
	assert.InDelta(t, margin, testutil.ToFloat64(collector.LinkMargin.WithLabelValues(a.ID)), 1e-9)

	require.NoError(t, s.DeleteNetwork(ctx, b.ID))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.TopologyNetworks))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.LinkMargin))
}

func TestServicePublishesEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	events, unsubscribe := s.Subscribe(8)
	defer unsubscribe()

	n, err := s.CreateNetwork(ctx, "Ops")
	require.NoError(t, err)
	require.NoError(t, s.AddMember(ctx, n.ID, "a"))

	ev := <-events
	assert.Equal(t, EventNetworkCreated, ev.Type)
	assert.Equal(t, n.ID, ev.NetworkID)
	ev = <-events
	assert.Equal(t, EventNetworkUpdated, ev.Type)
}

func TestServicePositionsAndZoom(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	n := meshOf(t, s, "a", "b")

	require.ErrorIs(t, s.SetPosition(ctx, n.ID, "a", core.Point{X: math.NaN()}), ErrInvalidPosition)
	err := s.SetPosition(ctx, n.ID, "zz", core.Point{X: 1, Y: 1})
	require.ErrorIs(t, err, core.ErrNotMember)
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.SetPosition(ctx, n.ID, "a", core.Point{X: 100, Y: 100}))
	require.NoError(t, s.SetPosition(ctx, n.ID, "b", core.Point{X: 200, Y: 100}))

	pos, err := s.ZoomToFit(ctx, n.ID)
	require.NoError(t, err)
	p := s.Params()
	assert.InDelta(t, p.Center().X-100*p.MaxZoom/2, pos["a"].X, 1e-9)
	assert.InDelta(t, p.Center().X+100*p.MaxZoom/2, pos["b"].X, 1e-9)
	assert.InDelta(t, p.Center().Y, pos["a"].Y, 1e-9)

	cached, err := s.Positions(n.ID)
	require.NoError(t, err)
	assert.Equal(t, pos, cached)
}

func TestServiceResolve(t *testing.T) {
	dir := kb.NewKnowledgeBase()
	require.NoError(t, dir.AddEntity(model.Entity{ID: "f16", Name: "Viper 1", Kind: model.KindAircraft, Team: "blue"}))

	s := newTestService(t, WithDirectory(dir))
	n := meshOf(t, s)
	require.NoError(t, s.RenameNetwork(context.Background(), n.ID, "Strike"))

	assert.Equal(t, core.Resolved{Name: "Strike", Kind: core.KindNetwork, Team: core.TeamNeutral}, s.Resolve(n.ID))
	assert.Equal(t, core.Resolved{Name: "Viper 1", Kind: "aircraft", Team: "blue"}, s.Resolve("f16"))
	assert.Equal(t, core.Resolved{Name: "ghost", Kind: core.KindUnknown, Team: core.TeamNeutral}, s.Resolve("ghost"))
}

const scenarioJSON = `{
  "networks": [
    {"id": "net_001", "name": "Link-16", "type": "star", "members": ["awacs", "f16", "net_002"], "hub": "awacs"},
    {"id": "net_002", "name": "Ground", "type": "multihop", "members": ["g1", "g2"], "path": ["g2", "g1"]}
  ],
  "entities": [
    {"id": "awacs", "name": "Sentry", "kind": "aircraft", "team": "blue"},
    {"id": "f16", "name": "Viper 1", "kind": "aircraft", "team": "blue"}
  ]
}`

func TestServiceLoadAndSaveScenario(t *testing.T) {
	ctx := context.Background()
	dir := kb.NewKnowledgeBase()
	s := newTestService(t, WithDirectory(dir))

	sc, err := s.LoadScenario(ctx, strings.NewReader(scenarioJSON), core.FormatJSON)
	require.NoError(t, err)
	require.Len(t, sc.Networks, 2)
	assert.Equal(t, 2, dir.Len())
	assert.Equal(t, "Sentry", s.Resolve("awacs").Name)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Networks)
	assert.Equal(t, 3, stats.TotalLinks)
	assert.Equal(t, 4, stats.UniqueEntities)

	next, err := s.CreateNetwork(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "net_003", next.ID)

	var buf bytes.Buffer
	require.NoError(t, s.SaveScenario(&buf, core.FormatJSON))

	other := newTestService(t, WithDirectory(kb.NewKnowledgeBase()))
	reloaded, err := other.LoadScenario(ctx, &buf, core.FormatJSON)
	require.NoError(t, err)
	require.Len(t, reloaded.Networks, 3)
	assert.Equal(t, []string{"g2", "g1"}, reloaded.Networks[1].Path)
	assert.Equal(t, "awacs", reloaded.Networks[0].HubID())
}

func TestServiceSetNetworksRejectsCycles(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	keep := meshOf(t, s, "a")

	a := &core.Network{ID: "net_010", Type: core.TopologyMesh, Members: []core.MemberRef{core.EntityRef("net_011")}}
	b := &core.Network{ID: "net_011", Type: core.TopologyMesh, Members: []core.MemberRef{core.EntityRef("net_010")}}
	require.ErrorIs(t, s.SetNetworks(ctx, []*core.Network{a, b}), core.ErrCycleDetected)

	got := s.GetNetworks()
	require.Len(t, got, 1)
	assert.Equal(t, keep.ID, got[0].ID)
}

func TestServiceAnnouncesEntityChanges(t *testing.T) {
	dir := kb.NewKnowledgeBase()
	s := newTestService(t, WithDirectory(dir))
	withAwacs := meshOf(t, s, "awacs", "f16")
	meshOf(t, s, "g1")

	events, unsubscribe := s.Subscribe(8)
	defer unsubscribe()

	require.NoError(t, dir.UpsertEntity(model.Entity{ID: "awacs", Name: "Sentry", Kind: model.KindAircraft, Team: "blue"}))

	select {
	case ev := <-events:
		assert.Equal(t, EventNetworkUpdated, ev.Type)
		assert.Equal(t, withAwacs.ID, ev.NetworkID)
	case <-time.After(time.Second):
		t.Fatal("no update event for the network holding the entity")
	}
	assert.Equal(t, "Sentry", s.Resolve("awacs").Name)

	s.Close()
	require.NoError(t, dir.UpsertEntity(model.Entity{ID: "awacs", Name: "Sentry 2"}))
	select {
	case ev := <-events:
		t.Fatalf("unexpected event after Close: %+v", ev)
	default:
	}
}
