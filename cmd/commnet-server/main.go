package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/internal/config"
	"github.com/signalsfoundry/comms-designer/internal/designer"
	"github.com/signalsfoundry/comms-designer/internal/logging"
	"github.com/signalsfoundry/comms-designer/internal/nbi"
	"github.com/signalsfoundry/comms-designer/internal/observability"
	"github.com/signalsfoundry/comms-designer/kb"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "commnet-server: %v\n", err)
		os.Exit(2)
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then drains the gRPC and metrics
// servers and stops every layout run.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewNBICollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	layoutCollector, err := observability.NewLayoutCollector(reg)
	if err != nil {
		return fmt.Errorf("init layout metrics: %w", err)
	}

	directory := kb.NewKnowledgeBase()
	svc := designer.NewService(nil, log,
		designer.WithDirectory(directory),
		designer.WithMetricsRecorder(collector),
		designer.WithLayoutMetrics(layoutCollector),
		designer.WithLayoutParams(cfg.LayoutParams()),
		designer.WithTicking(cfg.Layout.TickInterval, cfg.TickMode()),
	)
	defer svc.Close()

	if cfg.ScenarioPath != "" {
		if err := loadScenario(ctx, svc, cfg.ScenarioPath, log); err != nil {
			return err
		}
	}

	server, healthSrv := nbi.NewServer(svc, log, collector, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	metricsSrv := newMetricsServer(cfg.MetricsAddress, collector)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting TopologyService gRPC server", logging.String("addr", lis.Addr().String()))
		return server.Serve(lis)
	})
	if metricsSrv != nil {
		g.Go(func() error {
			log.Info(gctx, "serving Prometheus metrics", logging.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down TopologyService server")
		healthSrv.Shutdown()
		server.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}

func newMetricsServer(addr string, collector *observability.NBICollector) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func loadScenario(ctx context.Context, svc *designer.Service, path string, log logging.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	sc, err := svc.LoadScenario(ctx, f, core.FormatFromPath(path))
	if err != nil {
		return fmt.Errorf("load scenario %s: %w", path, err)
	}
	log.Info(ctx, "loaded scenario",
		logging.String("path", path),
		logging.Int("networks", len(sc.Networks)),
		logging.Int("entities", len(sc.Entities)),
	)
	return nil
}
