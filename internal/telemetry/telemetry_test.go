package telemetry

import (
	"context"
	"testing"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Enabled {
		t.Fatal("disabled provider reports enabled")
	}

	// Instruments must be usable without an exporter.
	p.RecordRequest(true, "", 1.5)
	p.RecordRequest(false, "off_topic", 0.2)
	p.RecordIncident("jailbreak_attempt", true)
	p.Shutdown(context.Background())
}

func TestNilProviderIsSafe(t *testing.T) {
	var p *Provider
	p.RecordRequest(true, "", 0)
	p.RecordIncident("x", false)
	p.Shutdown(context.Background())
	if p.Tracer() == nil || p.Meter() == nil {
		t.Fatal("nil provider returned nil tracer or meter")
	}
}
