package nbi

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/comms-designer/internal/designer"
	"github.com/signalsfoundry/comms-designer/internal/logging"
	"github.com/signalsfoundry/comms-designer/internal/observability"
)

// NewServer builds a gRPC server carrying TopologyService and the standard
// health service. Interceptors run in the order request id, tracing,
// metrics. collector may be nil.
func NewServer(svc *designer.Service, log logging.Logger, collector *observability.NBICollector, extra ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RequestIDUnaryServerInterceptor(log),
			TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			RequestIDStreamServerInterceptor(log),
			TracingStreamServerInterceptor(),
			collector.StreamServerInterceptor(),
		),
	}
	server := grpc.NewServer(append(opts, extra...)...)

	RegisterTopologyServiceServer(server, NewTopologyService(svc, log))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)
	return server, hs
}
