package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.ManagerPIN != "" {
		t.Fatalf("expected empty MANAGER_PIN when unset, got %q", cfg.ManagerPIN)
	}
}

func TestLoadBillingDefaults(t *testing.T) {
	t.Setenv("DEFAULT_GST_RATE", "")
	t.Setenv("ROUNDING_UNIT", "")
	t.Setenv("APPLY_SERVICE_CHARGE_TO_TAKEAWAY", "")
	t.Setenv("RESTAURANT_TIMEZONE", "")

	cfg := Load()
	if !cfg.DefaultGSTRate.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected default gst rate 5, got %s", cfg.DefaultGSTRate)
	}
	if !cfg.RoundingUnit.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("expected rounding unit 0.01, got %s", cfg.RoundingUnit)
	}
	if !cfg.ApplyServiceChargeToTakeaway {
		t.Fatalf("service charge should apply to takeaway by default")
	}
	if cfg.RestaurantTimezone != "Asia/Kolkata" {
		t.Fatalf("unexpected timezone %q", cfg.RestaurantTimezone)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pos.example.com, https://admin.example.com ,")
	t.Setenv("ROUNDING_UNIT", "1")
	t.Setenv("APPLY_SERVICE_CHARGE_TO_TAKEAWAY", "false")
	t.Setenv("DEFAULT_SERVICE_CHARGE_RATE", "not-a-number")

	cfg := Load()
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if !cfg.RoundingUnit.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected rounding unit 1, got %s", cfg.RoundingUnit)
	}
	if cfg.ApplyServiceChargeToTakeaway {
		t.Fatalf("expected takeaway service charge disabled")
	}
	if !cfg.DefaultServiceChargeRate.IsZero() {
		t.Fatalf("invalid decimal should fall back to zero, got %s", cfg.DefaultServiceChargeRate)
	}
}
