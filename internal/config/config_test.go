package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Memory.Size != 1<<20 {
		t.Errorf("Expected Memory.Size=%d, got %d", 1<<20, cfg.Memory.Size)
	}
	if cfg.Execution.ExecLimit != 500 {
		t.Errorf("Expected Execution.ExecLimit=500, got %d", cfg.Execution.ExecLimit)
	}
	if cfg.Trace.ShowInstructions {
		t.Error("Expected Trace.ShowInstructions=false")
	}
	if cfg.Trace.ShowRegisters {
		t.Error("Expected Trace.ShowRegisters=false")
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}
	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.Memory.Size != 1<<20 {
		t.Errorf("Expected default Memory.Size, got %d", cfg.Memory.Size)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Memory.Size = 4096
	cfg.Execution.ExecLimit = 42
	cfg.Trace.ShowInstructions = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo returned error: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if loaded.Memory.Size != 4096 {
		t.Errorf("Expected Memory.Size=4096, got %d", loaded.Memory.Size)
	}
	if loaded.Execution.ExecLimit != 42 {
		t.Errorf("Expected Execution.ExecLimit=42, got %d", loaded.Execution.ExecLimit)
	}
	if !loaded.Trace.ShowInstructions {
		t.Error("Expected Trace.ShowInstructions=true after round trip")
	}
}
