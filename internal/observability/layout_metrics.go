package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Layout run outcomes.
const (
	LayoutCompleted = "completed"
	LayoutCancelled = "cancelled"
)

// LayoutCollector exposes force-directed layout metrics.
type LayoutCollector struct {
	gatherer prometheus.Gatherer

	TickDuration prometheus.Histogram
	TicksTotal   prometheus.Counter
	Runs         *prometheus.CounterVec
	ActiveRuns   prometheus.Gauge
}

// NewLayoutCollector registers layout metrics against the provided registerer.
func NewLayoutCollector(reg prometheus.Registerer) (*LayoutCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	tickHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "layout_tick_duration_seconds",
		Help:    "Duration of a single layout physics step including the position commit.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})
	tickHistogram, err := registerHistogram(reg, tickHistogram, "layout_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "layout_ticks_total",
		Help: "Cumulative number of layout ticks executed.",
	})
	ticks, err = registerCounter(reg, ticks, "layout_ticks_total")
	if err != nil {
		return nil, err
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "layout_runs_total",
		Help: "Finished layout runs, labeled by outcome.",
	}, []string{"outcome"})
	runs, err = registerCounterVec(reg, runs, "layout_runs_total")
	if err != nil {
		return nil, err
	}

	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "layout_active_runs",
		Help: "Number of networks with a layout currently running.",
	})
	active, err = registerGauge(reg, active, "layout_active_runs")
	if err != nil {
		return nil, err
	}

	return &LayoutCollector{
		gatherer:     gatherer,
		TickDuration: tickHistogram,
		TicksTotal:   ticks,
		Runs:         runs,
		ActiveRuns:   active,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *LayoutCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTick records one executed tick.
func (c *LayoutCollector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	if c.TickDuration != nil {
		c.TickDuration.Observe(d.Seconds())
	}
	if c.TicksTotal != nil {
		c.TicksTotal.Inc()
	}
}

// RunStarted marks a layout run as active.
func (c *LayoutCollector) RunStarted() {
	if c == nil || c.ActiveRuns == nil {
		return
	}
	c.ActiveRuns.Inc()
}

// RunFinished marks a run as ended with the given outcome.
func (c *LayoutCollector) RunFinished(outcome string) {
	if c == nil {
		return
	}
	if c.ActiveRuns != nil {
		c.ActiveRuns.Dec()
	}
	if c.Runs != nil {
		c.Runs.WithLabelValues(outcome).Inc()
	}
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
