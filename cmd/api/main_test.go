package main

import (
	"testing"

	"github.com/xxz807/cfodesk/backend/internal/platform/config"
)

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("CFODESK_CONFIG", "")
	if got := defaultConfigPath(); got != defaultConfig {
		t.Errorf("defaultConfigPath() = %q, want %q", got, defaultConfig)
	}

	t.Setenv("CFODESK_CONFIG", "/etc/cfodesk.yaml")
	if got := defaultConfigPath(); got != "/etc/cfodesk.yaml" {
		t.Errorf("defaultConfigPath() = %q, want env override", got)
	}
}

func TestBundledConfigLoads(t *testing.T) {
	cfg, err := config.Load("../../" + defaultConfig)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if cfg.Server.Port == "" || cfg.Engine.MaxParallel < 1 {
		t.Errorf("config = %+v", cfg)
	}
}
