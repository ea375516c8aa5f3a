package main

import (
	"testing"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/config"
)

func strongConfig() config.Config {
	return config.Config{
		AppEnv:         "production",
		AuthSecret:     "0123456789abcdef0123456789abcdef",
		ManagerPIN:     "739154",
		AllowedOrigins: []string{"https://pos.example.com"},
	}
}

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", ManagerPIN: "123456"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	if err := validateSecurityConfig(strongConfig()); err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidateSecurityConfigRejectsWildcardOriginInProduction(t *testing.T) {
	cfg := strongConfig()
	cfg.AllowedOrigins = []string{"*"}
	if err := validateSecurityConfig(cfg); err == nil {
		t.Fatalf("expected wildcard origin to be rejected in production")
	}

	cfg.AppEnv = "development"
	if err := validateSecurityConfig(cfg); err != nil {
		t.Fatalf("expected wildcard origin to be allowed in development, got %v", err)
	}
}

func TestValidatePINStrength(t *testing.T) {
	for _, pin := range []string{"123456", "987654", "444444", "112233"} {
		if validatePINStrength(pin) == nil {
			t.Fatalf("expected %s to be rejected", pin)
		}
	}
	if err := validatePINStrength("739154"); err != nil {
		t.Fatalf("expected 739154 to pass, got %v", err)
	}
}

func TestDefaultSettingsFromConfig(t *testing.T) {
	cfg := config.Config{
		RestaurantID:                 "main-restaurant",
		RestaurantName:               "Spice Route",
		DefaultGSTScheme:             "composition",
		DefaultGSTRate:               decimal.NewFromInt(5),
		DefaultServiceChargeRate:     decimal.NewFromInt(10),
		ApplyServiceChargeToTakeaway: false,
		RoundingUnit:                 decimal.NewFromInt(1),
		Currency:                     "INR",
	}

	settings := defaultSettings(cfg)
	if settings.RestaurantID != "main-restaurant" || settings.GSTScheme != "composition" {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if !settings.ServiceChargeRate.Equal(decimal.NewFromInt(10)) || settings.ApplyServiceChargeToTakeaway {
		t.Fatalf("service charge config not carried over: %+v", settings)
	}
	if !settings.RoundingUnit.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected whole-rupee rounding, got %s", settings.RoundingUnit)
	}
}
