package config

import "strings"

// DefaultConfig returns a complete Config populated entirely with
// defaults, used when no config file is found.
func DefaultConfig() Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
// Explicit values from file/env are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyZonesDefaults(&cfg.Zones)
	applyResourceChainDefaults(&cfg.ResourceChain)
	applyExtensionDefaults(&cfg.Extension)
	applyAppleEventDefaults(&cfg.AppleEvent)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyZonesDefaults(cfg *ZonesConfig) {
	if cfg.System.Name == "" {
		cfg.System.Name = "system"
	}
	if cfg.System.BudgetBytes == 0 {
		cfg.System.BudgetBytes = 4 << 20
	}
	if cfg.Application.Name == "" {
		cfg.Application.Name = "application"
	}
	if cfg.Application.BudgetBytes == 0 {
		cfg.Application.BudgetBytes = 16 << 20
	}
}

func applyResourceChainDefaults(cfg *ResourceChainConfig) {
	if cfg.CacheCapacity == 0 {
		cfg.CacheCapacity = 256
	}
}

func applyExtensionDefaults(cfg *ExtensionConfig) {
	if len(cfg.ScanKinds) == 0 {
		cfg.ScanKinds = []string{"DRVR", "INIT", "CDEF", "WDEF", "MDEF", "LDEF", "FKEY"}
	}
}

func applyAppleEventDefaults(cfg *AppleEventConfig) {
	if cfg.SendTimeoutTicks == 0 {
		cfg.SendTimeoutTicks = 60 * 30 // 30 seconds at 60Hz
	}
	if cfg.RecordingCapacity == 0 {
		cfg.RecordingCapacity = 512
	}
}
