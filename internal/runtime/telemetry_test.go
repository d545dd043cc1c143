package runtime

import (
	"context"
	"testing"
)

func TestSetupTracingWithoutEndpointIsNoop(t *testing.T) {
	tr, err := SetupTracing(context.Background(), "", "agentea", "test")
	if err != nil {
		t.Fatalf("SetupTracing: %v", err)
	}
	if tr.tp != nil {
		t.Fatalf("expected no provider without endpoint")
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	var nilTracing *Tracing
	if err := nilTracing.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil Shutdown: %v", err)
	}
}

func TestSetupTracingInstallsProvider(t *testing.T) {
	// The exporter connects lazily, so no collector is needed here.
	tr, err := SetupTracing(context.Background(), "localhost:4317", "agentea", "test")
	if err != nil {
		t.Fatalf("SetupTracing: %v", err)
	}
	if tr.tp == nil {
		t.Fatalf("expected a tracer provider")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tr.Shutdown(ctx)
}
