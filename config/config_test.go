package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zaza89/knet-go/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "knet.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
acceptors:
  - name: echo
    port: 9000
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WorkerThreadCount != 1 {
		t.Errorf("WorkerThreadCount = %d, want 1", cfg.WorkerThreadCount)
	}
	if cfg.WorkerTimerFreqMs != 1000 {
		t.Errorf("WorkerTimerFreqMs = %d, want 1000", cfg.WorkerTimerFreqMs)
	}
	if cfg.WorkerTimerSlot != 512 {
		t.Errorf("WorkerTimerSlot = %d, want 512", cfg.WorkerTimerSlot)
	}
	a := cfg.Acceptors[0]
	if a.IP != "0.0.0.0" {
		t.Errorf("Acceptors[0].IP = %q, want 0.0.0.0", a.IP)
	}
	if a.Backlog != 100 {
		t.Errorf("Acceptors[0].Backlog = %d, want 100", a.Backlog)
	}
	if a.MaxRecvBufferLength != 16*1024 {
		t.Errorf("Acceptors[0].MaxRecvBufferLength = %d, want 16384", a.MaxRecvBufferLength)
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
worker_thread_count: 4
connectors:
  - name: upstream
    ip: 10.0.0.1
    port: 7000
    connect_timeout: 5s
    auto_reconnect: true
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WorkerThreadCount != 4 {
		t.Errorf("WorkerThreadCount = %d, want 4", cfg.WorkerThreadCount)
	}
	c := cfg.Connectors[0]
	if c.IP != "10.0.0.1" {
		t.Errorf("Connectors[0].IP = %q, want 10.0.0.1", c.IP)
	}
	if c.ConnectTimeout != 5*time.Second {
		t.Errorf("Connectors[0].ConnectTimeout = %v, want 5s", c.ConnectTimeout)
	}
	if !c.AutoReconnect {
		t.Errorf("Connectors[0].AutoReconnect = false, want true")
	}
}

func TestLoadRejectsMissingPort(t *testing.T) {
	path := writeConfig(t, `
acceptors:
  - name: broken
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("Load() succeeded, want an error for a missing port")
	}
}
