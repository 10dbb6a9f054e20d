package designer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/internal/logging"
	"github.com/signalsfoundry/comms-designer/internal/observability"
	"github.com/signalsfoundry/comms-designer/timectrl"
)

// RunState is the layout state of one network.
type RunState string

const (
	LayoutIdle    RunState = "IDLE"
	LayoutRunning RunState = "RUNNING"
)

// LayoutStatus reports the run state and the number of committed ticks of
// the current run.
type LayoutStatus struct {
	NetworkID string   `json:"networkId"`
	State     RunState `json:"state"`
	Tick      int      `json:"tick"`
	MaxTicks  int      `json:"maxTicks"`
}

// LayoutSimulator runs force-directed layouts, at most one per network.
// Every tick takes the owning Service's lock, so a tick never interleaves
// with a topology mutation. Cancellation takes effect between ticks.
type LayoutSimulator struct {
	svc *Service

	interval time.Duration
	mode     timectrl.Mode
	metrics  *observability.LayoutCollector

	// runs is guarded by svc.mu.
	runs map[string]*layoutRun

	wg sync.WaitGroup
}

type layoutRun struct {
	networkID string
	ctx       context.Context
	cancel    context.CancelFunc
	finished  chan struct{}
	span      trace.Span

	// tick is the number of committed steps, guarded by svc.mu.
	tick int
}

func newLayoutSimulator(svc *Service, interval time.Duration, mode timectrl.Mode, metrics *observability.LayoutCollector) *LayoutSimulator {
	return &LayoutSimulator{
		svc:      svc,
		interval: interval,
		mode:     mode,
		metrics:  metrics,
		runs:     make(map[string]*layoutRun),
	}
}

// Start begins a layout run for networkID, replacing any run already in
// flight for it. Members without a cached position are placed first.
func (ls *LayoutSimulator) Start(ctx context.Context, networkID string) error {
	s := ls.svc
	log := logging.FromContextOr(ctx, s.log)

	s.mu.Lock()
	n, err := s.store.Network(networkID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if prev := ls.runs[networkID]; prev != nil {
		prev.cancel()
		delete(ls.runs, networkID)
		log.Debug(ctx, "layout run superseded", logging.String("network_id", networkID))
	}
	s.positions[networkID] = core.InitialPlacement(n, s.positions[networkID], s.params)

	runCtx, cancel := context.WithCancel(context.Background())
	_, span := s.tracer.Start(ctx, "designer.LayoutRun",
		trace.WithAttributes(
			attribute.String("commnet.network_id", networkID),
			attribute.Int("commnet.layout.max_ticks", s.params.MaxTicks),
		))
	run := &layoutRun{
		networkID: networkID,
		ctx:       runCtx,
		cancel:    cancel,
		finished:  make(chan struct{}),
		span:      span,
	}
	ls.runs[networkID] = run
	ls.wg.Add(1)
	maxTicks := s.params.MaxTicks
	s.mu.Unlock()

	tc := timectrl.NewTimeController(ls.interval, ls.mode)
	tc.AddListener(func(tick int) { ls.step(run, tick) })

	ls.metrics.RunStarted()
	done := tc.Start(runCtx, maxTicks)
	go ls.finish(run, done)

	log.Info(ctx, "layout started",
		logging.String("network_id", networkID),
		logging.Int("max_ticks", maxTicks),
		logging.String("mode", ls.mode.String()),
	)
	return nil
}

// step commits one physics tick. Members and links are re-read every tick
// so the run follows concurrent edits.
func (ls *LayoutSimulator) step(run *layoutRun, tick int) {
	s := ls.svc
	start := time.Now()

	s.mu.Lock()
	if run.ctx.Err() != nil || ls.runs[run.networkID] != run {
		s.mu.Unlock()
		return
	}
	n, err := s.store.Network(run.networkID)
	if err != nil {
		run.cancel()
		s.mu.Unlock()
		return
	}
	next := core.Tick(core.LayoutState{
		Members:   n.MemberIDs(),
		Links:     core.ComputeLinks(n),
		Positions: core.InitialPlacement(n, s.positions[run.networkID], s.params),
		Tick:      tick,
		Params:    s.params,
	})
	s.positions[run.networkID] = next.Positions
	run.tick = next.Tick
	frame := LayoutFrame{
		NetworkID: run.networkID,
		Tick:      next.Tick,
		Positions: next.Positions.Clone(),
		Done:      next.Done(),
	}
	s.mu.Unlock()

	ls.metrics.ObserveTick(time.Since(start))
	s.events.Publish(Event{Type: EventPositionsUpdate, NetworkID: run.networkID, Frame: &frame})
}

func (ls *LayoutSimulator) finish(run *layoutRun, done <-chan struct{}) {
	defer ls.wg.Done()
	<-done

	s := ls.svc
	s.mu.Lock()
	if ls.runs[run.networkID] == run {
		delete(ls.runs, run.networkID)
	}
	ticks := run.tick
	completed := ticks >= s.params.MaxTicks
	var last core.Positions
	if !completed {
		last = s.positions[run.networkID].Clone()
	}
	s.mu.Unlock()

	run.cancel()
	run.span.SetAttributes(
		attribute.Int("commnet.layout.ticks", ticks),
		attribute.Bool("commnet.layout.completed", completed),
	)
	run.span.End()

	outcome := observability.LayoutCompleted
	if !completed {
		outcome = observability.LayoutCancelled
		s.events.Publish(Event{
			Type:      EventPositionsUpdate,
			NetworkID: run.networkID,
			Frame: &LayoutFrame{
				NetworkID: run.networkID,
				Tick:      ticks,
				Positions: last,
				Done:      true,
				Cancelled: true,
			},
		})
	}
	ls.metrics.RunFinished(outcome)
	s.log.Debug(context.Background(), "layout finished",
		logging.String("network_id", run.networkID),
		logging.Int("ticks", ticks),
		logging.String("outcome", outcome),
	)
	close(run.finished)
}

// Cancel stops the run for networkID. The network is IDLE when Cancel
// returns; it reports whether a run was in flight.
func (ls *LayoutSimulator) Cancel(networkID string) bool {
	ls.svc.mu.Lock()
	defer ls.svc.mu.Unlock()
	return ls.cancelLocked(networkID)
}

func (ls *LayoutSimulator) cancelLocked(networkID string) bool {
	run := ls.runs[networkID]
	if run == nil {
		return false
	}
	run.cancel()
	delete(ls.runs, networkID)
	return true
}

func (ls *LayoutSimulator) cancelAllLocked() {
	for id := range ls.runs {
		ls.cancelLocked(id)
	}
}

// Status returns the run state of networkID.
func (ls *LayoutSimulator) Status(networkID string) (LayoutStatus, error) {
	s := ls.svc
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.IsNetwork(networkID) {
		return LayoutStatus{}, fmt.Errorf("%w: %q", core.ErrNotFound, networkID)
	}
	st := LayoutStatus{NetworkID: networkID, State: LayoutIdle, MaxTicks: s.params.MaxTicks}
	if run := ls.runs[networkID]; run != nil {
		st.State = LayoutRunning
		st.Tick = run.tick
	}
	return st, nil
}

// Wait blocks until the current run for networkID ends or ctx is done. It
// returns immediately when the network is idle.
func (ls *LayoutSimulator) Wait(ctx context.Context, networkID string) error {
	ls.svc.mu.Lock()
	run := ls.runs[networkID]
	ls.svc.mu.Unlock()
	if run == nil {
		return nil
	}
	select {
	case <-run.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running returns the ids of networks with a run in flight.
func (ls *LayoutSimulator) Running() []string {
	ls.svc.mu.Lock()
	defer ls.svc.mu.Unlock()
	out := make([]string, 0, len(ls.runs))
	for id := range ls.runs {
		out = append(out, id)
	}
	return out
}

// close cancels every run and waits for their goroutines.
func (ls *LayoutSimulator) close() {
	ls.svc.mu.Lock()
	ls.cancelAllLocked()
	ls.svc.mu.Unlock()
	ls.wg.Wait()
}
