package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchExtensionConfigReloadsOnChange(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	initial := `
extension:
  debug_mode: false
  auto_load_enabled: true
`
	if err := os.WriteFile(configPath, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	w, err := WatchExtensionConfig(configPath, ExtensionConfig{DebugMode: false, AutoLoadEnabled: true})
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}

	if w.DebugMode() {
		t.Error("expected initial debug mode false")
	}

	updated := `
extension:
  debug_mode: true
  auto_load_enabled: false
`
	if err := os.WriteFile(configPath, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to rewrite config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.DebugMode() && !w.AutoLoadEnabled() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("expected hot-reload to observe debug_mode=true, auto_load_enabled=false")
}
