package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewNBICollector(reg)
	if err != nil {
		t.Fatalf("NewNBICollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/commnet.v1.TopologyService/CreateNetwork"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("TopologyService", "CreateNetwork", "OK")); got != 1 {
		t.Fatalf("commnet_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "commnet_request_duration_seconds", map[string]string{
		"service": "TopologyService",
		"method":  "CreateNetwork",
	}); count != 1 {
		t.Fatalf("commnet_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewNBICollector(reg)
	if err != nil {
		t.Fatalf("NewNBICollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/commnet.v1.TopologyService/AddMember"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.FailedPrecondition, "cycle")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("TopologyService", "AddMember", "FailedPrecondition")); got != 1 {
		t.Fatalf("commnet_requests_total error label = %v, want 1", got)
	}
}

func TestStreamInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewNBICollector(reg)
	if err != nil {
		t.Fatalf("NewNBICollector: %v", err)
	}

	interceptor := collector.StreamServerInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: "/commnet.v1.TopologyService/WatchLayout", IsServerStream: true}
	_ = interceptor(nil, nil, info, func(srv interface{}, ss grpc.ServerStream) error { return nil })

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("TopologyService", "WatchLayout", "OK")); got != 1 {
		t.Fatalf("stream requests = %v, want 1", got)
	}
}

func TestMetricsHandlerExposesTopologyGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewNBICollector(reg)
	if err != nil {
		t.Fatalf("NewNBICollector: %v", err)
	}
	collector.SetTopologyCounts(3, 7, 11, 70)
	collector.SetLinkMargin("net_001", 12.5)
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"commnet_requests_total",
		"commnet_request_duration_seconds",
		"topology_networks 3",
		"topology_links 7",
		"topology_unique_entities 11",
		"topology_bandwidth_mbps 70",
		`topology_link_margin_db{network="net_001"} 12.5`,
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}

	collector.ForgetNetwork("net_001")
	if got := testutil.CollectAndCount(collector.LinkMargin); got != 0 {
		t.Fatalf("link margin series after forget = %d, want 0", got)
	}
}

func TestCollectorReRegistersOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewNBICollector(reg)
	if err != nil {
		t.Fatalf("first NewNBICollector: %v", err)
	}
	second, err := NewNBICollector(reg)
	if err != nil {
		t.Fatalf("second NewNBICollector: %v", err)
	}
	if first.TopologyLinks != second.TopologyLinks {
		t.Fatalf("expected second collector to reuse registered gauge")
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *NBICollector
	c.SetTopologyCounts(1, 2, 3, 4)
	c.SetLinkMargin("x", 1)
	c.ForgetNetwork("x")

	var l *LayoutCollector
	l.ObserveTick(time.Millisecond)
	l.RunStarted()
	l.RunFinished(LayoutCompleted)
}

func TestLayoutCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewLayoutCollector(reg)
	if err != nil {
		t.Fatalf("NewLayoutCollector: %v", err)
	}

	c.RunStarted()
	c.ObserveTick(200 * time.Microsecond)
	c.ObserveTick(300 * time.Microsecond)
	c.RunFinished(LayoutCancelled)

	if got := testutil.ToFloat64(c.TicksTotal); got != 2 {
		t.Fatalf("layout_ticks_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ActiveRuns); got != 0 {
		t.Fatalf("layout_active_runs = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.Runs.WithLabelValues(LayoutCancelled)); got != 1 {
		t.Fatalf("layout_runs_total{cancelled} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, c.Gatherer(), "layout_tick_duration_seconds", nil); count != 2 {
		t.Fatalf("tick histogram count = %d, want 2", count)
	}
}

func TestSplitMethod(t *testing.T) {
	cases := []struct {
		in, service, method string
	}{
		{"/commnet.v1.TopologyService/GetNetworks", "TopologyService", "GetNetworks"},
		{"", "unknown", "unknown"},
		{"nonsense", "unknown", "unknown"},
	}
	for _, tc := range cases {
		s, m := SplitMethod(tc.in)
		if s != tc.service || m != tc.method {
			t.Fatalf("SplitMethod(%q) = %s/%s, want %s/%s", tc.in, s, m, tc.service, tc.method)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
