package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxClips != 20 {
		t.Fatalf("MaxClips = %d, want 20", cfg.MaxClips)
	}
	if cfg.MaxClipSeconds != 600 {
		t.Fatalf("MaxClipSeconds = %d, want 600", cfg.MaxClipSeconds)
	}
	if cfg.FullSourceMaxMinutes != 120 {
		t.Fatalf("FullSourceMaxMinutes = %d, want 120", cfg.FullSourceMaxMinutes)
	}
	want := time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC)
	if !cfg.PricingCutover.Equal(want) {
		t.Fatalf("PricingCutover = %v, want %v", cfg.PricingCutover, want)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvMaxClips, "5")
	t.Setenv(EnvPricingCutover, "2026-01-01")
	t.Setenv(EnvDataDir, "/tmp/clipx-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxClips != 5 {
		t.Fatalf("MaxClips = %d, want 5", cfg.MaxClips)
	}
	if cfg.PricingCutover.Year() != 2026 {
		t.Fatalf("PricingCutover year = %d, want 2026", cfg.PricingCutover.Year())
	}
	if cfg.CheckpointDBPath() != "/tmp/clipx-test/checkpoints.db" {
		t.Fatalf("unexpected checkpoint path %q", cfg.CheckpointDBPath())
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv(EnvMaxClips, "zero")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric max clips")
	}

	t.Setenv(EnvMaxClips, "10")
	t.Setenv(EnvPricingCutover, "October 9")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed cutover date")
	}
}
