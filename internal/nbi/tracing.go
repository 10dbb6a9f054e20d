package nbi

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/comms-designer/internal/logging"
	"github.com/signalsfoundry/comms-designer/internal/observability"
)

const tracerName = "github.com/signalsfoundry/comms-designer/internal/nbi"

// TracingUnaryServerInterceptor enriches RPC spans with standard attributes and
// ensures a server span exists when the otelgrpc stats handler is not configured.
func TracingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	tracer := otel.Tracer(tracerName)

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, span, created := rpcSpan(ctx, tracer, info.FullMethod)
		resp, err := handler(ctx, req)
		if err != nil {
			span.RecordError(err)
		}
		if created {
			span.End()
		}
		return resp, err
	}
}

// TracingStreamServerInterceptor does the same for streaming RPCs; the span
// covers the whole stream.
func TracingStreamServerInterceptor() grpc.StreamServerInterceptor {
	tracer := otel.Tracer(tracerName)

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, span, created := rpcSpan(ss.Context(), tracer, info.FullMethod)
		err := handler(srv, &contextStream{ServerStream: ss, ctx: ctx})
		if err != nil {
			span.RecordError(err)
		}
		if created {
			span.End()
		}
		return err
	}
}

func rpcSpan(ctx context.Context, tracer trace.Tracer, fullMethod string) (context.Context, trace.Span, bool) {
	service, method := observability.SplitMethod(fullMethod)
	name := fmt.Sprintf("NBI/%s/%s", service, method)

	span := trace.SpanFromContext(ctx)
	created := false
	if !span.SpanContext().IsValid() {
		ctx, span = tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
		created = true
	} else {
		span.SetName(name)
	}

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "grpc"),
		attribute.String("rpc.service", service),
		attribute.String("rpc.method", method),
		attribute.String("rpc.full_method", strings.TrimPrefix(fullMethod, "/")),
	}
	if reqID := logging.RequestIDFromContext(ctx); reqID != "" {
		attrs = append(attrs, attribute.String("request_id", reqID))
	}
	span.SetAttributes(attrs...)
	return ctx, span, created
}
