package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Detector.Interval.Std() != 2*time.Minute {
		t.Errorf("detector interval = %v, want 2m", cfg.Detector.Interval.Std())
	}
	if cfg.Monitor.Window.Std() != time.Hour {
		t.Errorf("window = %v, want 1h", cfg.Monitor.Window.Std())
	}
	if cfg.Gate.Interval.Std() != time.Minute {
		t.Errorf("gate interval = %v, want 1m", cfg.Gate.Interval.Std())
	}
	if cfg.Executor.MinTradeSize != 50 {
		t.Errorf("min trade size = %v, want 50", cfg.Executor.MinTradeSize)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
storage:
  use_memory: true
detector:
  interval: 5m
  min_volume: 1000
executor:
  candidate_limit: 25
logging:
  level: debug
  pretty: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Storage.UseMemory {
		t.Error("use_memory not applied")
	}
	if cfg.Detector.Interval.Std() != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", cfg.Detector.Interval.Std())
	}
	if cfg.Detector.MinVolume != 1000 {
		t.Errorf("min volume = %v, want 1000", cfg.Detector.MinVolume)
	}
	// Untouched fields keep their defaults
	if cfg.Detector.MinMarketCap != 10_000 {
		t.Errorf("min market cap = %v, want default 10000", cfg.Detector.MinMarketCap)
	}
	if cfg.Executor.CandidateLimit != 25 {
		t.Errorf("candidate limit = %d, want 25", cfg.Executor.CandidateLimit)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Pretty {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("monitor:\n  window: soon\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}
