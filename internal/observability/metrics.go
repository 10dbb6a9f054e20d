package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// NBICollector bundles Prometheus metrics for the gRPC surface and the
// topology it serves, and provides helpers to wire them into gRPC servers
// and HTTP handlers.
type NBICollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	TopologyNetworks  prometheus.Gauge
	TopologyLinks     prometheus.Gauge
	TopologyEntities  prometheus.Gauge
	TopologyBandwidth prometheus.Gauge
	LinkMargin        *prometheus.GaugeVec
}

// NewNBICollector registers Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewNBICollector(reg prometheus.Registerer) (*NBICollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commnet_requests_total",
		Help: "Total number of handled RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"})
	requests, err := registerCounterVec(reg, requests, "commnet_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commnet_request_duration_seconds",
		Help:    "RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"service", "method"})
	durations, err = registerHistogramVec(reg, durations, "commnet_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	networks, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "topology_networks",
		Help: "Current number of networks in the topology store.",
	}), "topology_networks")
	if err != nil {
		return nil, err
	}
	links, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "topology_links",
		Help: "Total derived links across all networks.",
	}), "topology_links")
	if err != nil {
		return nil, err
	}
	entities, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "topology_unique_entities",
		Help: "Distinct non-network members across all networks.",
	}), "topology_unique_entities")
	if err != nil {
		return nil, err
	}
	bandwidth, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "topology_bandwidth_mbps",
		Help: "Sum over networks of derived links times configured bandwidth.",
	}), "topology_bandwidth_mbps")
	if err != nil {
		return nil, err
	}
	margin := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "topology_link_margin_db",
		Help: "RF link margin at maximum range, per network.",
	}, []string{"network"})
	margin, err = registerGaugeVec(reg, margin, "topology_link_margin_db")
	if err != nil {
		return nil, err
	}

	return &NBICollector{
		gatherer:          gatherer,
		RPCRequests:       requests,
		RPCDurations:      durations,
		TopologyNetworks:  networks,
		TopologyLinks:     links,
		TopologyEntities:  entities,
		TopologyBandwidth: bandwidth,
		LinkMargin:        margin,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *NBICollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		c.observeRPC(fullMethod, start, err)
		return resp, err
	}
}

// StreamServerInterceptor records counts and total stream lifetimes for
// streaming RPCs.
func (c *NBICollector) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		c.observeRPC(fullMethod, start, err)
		return err
	}
}

func (c *NBICollector) observeRPC(fullMethod string, start time.Time, err error) {
	if c == nil {
		return
	}
	service, method := SplitMethod(fullMethod)
	code := status.Code(err).String()

	if c.RPCRequests != nil {
		c.RPCRequests.WithLabelValues(service, method, code).Inc()
	}
	if c.RPCDurations != nil {
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *NBICollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetTopologyCounts updates the aggregate topology gauges. The designer
// calls it after every mutation.
func (c *NBICollector) SetTopologyCounts(networks, links, entities int, bandwidthMbps float64) {
	if c == nil {
		return
	}
	if c.TopologyNetworks != nil {
		c.TopologyNetworks.Set(float64(networks))
	}
	if c.TopologyLinks != nil {
		c.TopologyLinks.Set(float64(links))
	}
	if c.TopologyEntities != nil {
		c.TopologyEntities.Set(float64(entities))
	}
	if c.TopologyBandwidth != nil {
		c.TopologyBandwidth.Set(bandwidthMbps)
	}
}

// SetLinkMargin records the budget margin of one network.
func (c *NBICollector) SetLinkMargin(networkID string, marginDB float64) {
	if c == nil || c.LinkMargin == nil {
		return
	}
	c.LinkMargin.WithLabelValues(networkID).Set(marginDB)
}

// ForgetNetwork drops per-network series for a deleted network.
func (c *NBICollector) ForgetNetwork(networkID string) {
	if c == nil || c.LinkMargin == nil {
		return
	}
	c.LinkMargin.DeleteLabelValues(networkID)
}

// ResetLinkMargins drops every per-network series, used before a wholesale
// reload.
func (c *NBICollector) ResetLinkMargins() {
	if c == nil || c.LinkMargin == nil {
		return
	}
	c.LinkMargin.Reset()
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
