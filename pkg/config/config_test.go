package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
logging:
  level: "DEBUG"

zones:
  system:
    name: system
    budget_bytes: 1048576
  application:
    name: application
    budget_bytes: 2097152
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default format text, got %q", cfg.Logging.Format)
	}
	if cfg.Zones.System.BudgetBytes != 1048576 {
		t.Errorf("expected system budget 1048576, got %d", cfg.Zones.System.BudgetBytes)
	}
	if cfg.ResourceChain.CacheCapacity != 256 {
		t.Errorf("expected default cache capacity 256, got %d", cfg.ResourceChain.CacheCapacity)
	}
}

func TestLoadNoConfigFileReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	missing := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(missing)
	if err != nil {
		t.Fatalf("expected no error loading defaults, got: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default level INFO, got %q", cfg.Logging.Level)
	}
	if len(cfg.Extension.ScanKinds) == 0 {
		t.Error("expected default scan kinds to be populated")
	}
}

func TestLoadRejectsInvalidLevel(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
logging:
  level: "NOISY"
  format: "text"
  output: "stdout"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected validation error for invalid log level")
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Logging.Level = "WARN"
	cfg.Extension.StrictMode = true

	if err := Save(&cfg, configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Logging.Level != "WARN" {
		t.Errorf("expected level WARN, got %q", loaded.Logging.Level)
	}
	if !loaded.Extension.StrictMode {
		t.Error("expected strict_mode to round-trip as true")
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(&cfg); err != nil {
		t.Errorf("expected default config to validate, got: %v", err)
	}
}

func TestLoadEnvironmentVariableOverride(t *testing.T) {
	_ = os.Setenv("TOOLBOX7_LOGGING_LEVEL", "ERROR")
	_ = os.Setenv("TOOLBOX7_METRICS_PORT", "9999")
	defer func() {
		_ = os.Unsetenv("TOOLBOX7_LOGGING_LEVEL")
		_ = os.Unsetenv("TOOLBOX7_METRICS_PORT")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
logging:
  level: "INFO"
  format: "text"
  output: "stdout"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("expected env override to set level ERROR, got %q", cfg.Logging.Level)
	}
	if cfg.Metrics.Port != 9999 {
		t.Errorf("expected env override to set metrics port 9999, got %d", cfg.Metrics.Port)
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()
	if filepath.Base(dir) != "toolbox7" {
		t.Errorf("expected directory name toolbox7, got %q", filepath.Base(dir))
	}
}
