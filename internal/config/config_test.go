package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FREE_SHIPPING_THRESHOLD", "")
	t.Setenv("GATEWAY_TIMEOUT", "")
	t.Setenv("RUN_LOCAL", "")

	cfg := Load()
	if cfg.FreeShippingThreshold != 2000 || cfg.StandardShippingCost != 79 {
		t.Fatalf("unexpected shipping defaults: %d/%d", cfg.FreeShippingThreshold, cfg.StandardShippingCost)
	}
	if cfg.GatewayTimeout != 10*time.Second {
		t.Fatalf("unexpected gateway timeout %s", cfg.GatewayTimeout)
	}
	if cfg.DeliveryCutoffHour != 14 {
		t.Fatalf("unexpected cutoff %d", cfg.DeliveryCutoffHour)
	}
	if cfg.RunLocal {
		t.Fatal("RUN_LOCAL should default to false")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FREE_SHIPPING_THRESHOLD", "1500")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("HTTP_PORT", "not-a-number")
	t.Setenv("RUN_LOCAL", "true")

	cfg := Load()
	if cfg.FreeShippingThreshold != 1500 {
		t.Fatalf("threshold override ignored: %d", cfg.FreeShippingThreshold)
	}
	if cfg.GatewayTimeout != 3*time.Second {
		t.Fatalf("timeout override ignored: %s", cfg.GatewayTimeout)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("invalid int must fall back to default, got %d", cfg.HTTPPort)
	}
	if !cfg.RunLocal {
		t.Fatal("RUN_LOCAL=true not honoured")
	}
}
