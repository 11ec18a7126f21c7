package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchDeliversReloadedConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	cfgDir := filepath.Join(dir, "squadron")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "config.yaml")
	if err := os.WriteFile(path, []byte("orchestrator:\n  max_parallel: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	errs := make(chan error, 1)
	err := Watch(func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// Give the watcher a beat to register before rewriting the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("orchestrator:\n  max_parallel: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Orchestrator.MaxParallel != 7 {
			t.Errorf("max_parallel = %d, want 7", cfg.Orchestrator.MaxParallel)
		}
	case err := <-errs:
		t.Fatalf("reload error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the config reload")
	}
}

func TestWatchFailsWithoutConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := Watch(func(*Config) {}, nil); err == nil {
		t.Fatal("expected an error when no user config file exists")
	}
}
