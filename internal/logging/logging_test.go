package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewJSONWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "designer")).Info(context.Background(), "network created",
		String("network_id", "net_001"),
		Int("members", 3),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "network created" || rec["component"] != "designer" || rec["network_id"] != "net_001" {
		t.Fatalf("record = %v", rec)
	}
	if rec["members"] != float64(3) || rec["error"] != "boom" {
		t.Fatalf("record = %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "text", Output: &buf})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", id, err)
	}
	ctx2, id2 := EnsureRequestID(ctx)
	if id2 != id || RequestIDFromContext(ctx2) != id {
		t.Fatalf("request id changed: %q -> %q", id, id2)
	}
}

func TestContextLogger(t *testing.T) {
	if got := LoggerFromContext(context.Background()); got != nil {
		t.Fatalf("LoggerFromContext = %v, want nil", got)
	}
	ctx := ContextWithLogger(context.Background(), Noop())
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("logger not stored on context")
	}
	if FromContextOr(context.Background(), nil) == nil {
		t.Fatalf("FromContextOr returned nil")
	}
}
