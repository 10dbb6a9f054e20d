package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/comms-designer/internal/config"
	"github.com/signalsfoundry/comms-designer/internal/logging"
	"github.com/signalsfoundry/comms-designer/internal/nbi"
	"github.com/signalsfoundry/comms-designer/timectrl"
)

const testScenario = `networks:
  - id: net_003
    name: Link-16
    type: star
    members: [awacs, f16, f15]
    hub: awacs
entities:
  - id: awacs
    name: Sentry
    kind: aircraft
    team: blue
`

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scenario := filepath.Join(t.TempDir(), "exercise.yaml")
	if err := os.WriteFile(scenario, []byte(testScenario), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := config.Default()
	cfg.ListenAddress = lis.Addr().String()
	cfg.MetricsAddress = freeAddr(t)
	cfg.ScenarioPath = scenario
	cfg.Log.Level = "warn"
	cfg.Layout.TickInterval = time.Millisecond
	cfg.Layout.Mode = timectrl.Accelerated.String()

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: io.Discard})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(cfg.ListenAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	client := nbi.NewClient(conn)
	resp, err := client.GetNetworks(ctx, &nbi.Empty{}, grpc.WaitForReady(true))
	if err != nil {
		t.Fatalf("GetNetworks: %v", err)
	}
	if len(resp.Networks) != 1 || resp.Networks[0].ID != "net_003" {
		t.Fatalf("GetNetworks = %+v, want the scenario network", resp.Networks)
	}

	resolved, err := client.Resolve(ctx, &nbi.ResolveRequest{MemberID: "awacs"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Resolved.Name != "Sentry" {
		t.Fatalf("Resolve(awacs).Name = %q, want Sentry", resolved.Resolved.Name)
	}

	body := scrapeMetrics(t, "http://"+cfg.MetricsAddress+"/metrics")
	for _, want := range []string{"topology_networks 1", "topology_links 2", "commnet_requests_total"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in /metrics output:\n%s", want, body)
		}
	}

	cancel()

	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestRunFailsOnBadScenario(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer lis.Close()

	cfg := config.Default()
	cfg.MetricsAddress = ""
	cfg.ScenarioPath = filepath.Join(t.TempDir(), "missing.json")

	if err := run(context.Background(), cfg, logging.Noop(), lis); err == nil {
		t.Fatalf("run with missing scenario returned nil error")
	}
}

func scrapeMetrics(t *testing.T, url string) string {
	t.Helper()
	var lastErr error
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil {
			data, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr == nil && resp.StatusCode == http.StatusOK {
				return string(data)
			}
			lastErr = readErr
		} else {
			lastErr = err
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("scrape %s: %v", url, lastErr)
	return ""
}
