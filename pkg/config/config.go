// Package config loads and validates toolbox7 configuration from a
// YAML file, environment variables, and defaults. Precedence, highest
// first: env overrides file, file overrides defaults. No command-line
// flag is bound to a configuration key.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the static configuration for a toolbox7 Core process.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (TOOLBOX7_<SECTION>_<KEY>)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls structured log output.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls Prometheus metrics registration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Telemetry controls OpenTelemetry OTLP trace export.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Zones defines the named Memory Manager zones created at boot.
	Zones ZonesConfig `mapstructure:"zones" yaml:"zones"`

	// ResourceChain configures the resource files opened at boot.
	ResourceChain ResourceChainConfig `mapstructure:"resource_chain" yaml:"resource_chain"`

	// Extension configures the Extension/Segment Loader scan.
	Extension ExtensionConfig `mapstructure:"extension" yaml:"extension"`

	// AppleEvent configures the AppleEvent Manager.
	AppleEvent AppleEventConfig `mapstructure:"apple_event" yaml:"apple_event"`
}

// LoggingConfig controls logging behavior; mirrors internal/logger.Config.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is the log encoding: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether Core's boot-phase histogram, the only
	// metric, is registered with the default Prometheus registry.
	// No HTTP endpoint is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is an HTTP port for /metrics. It is validated and stored
	// only; nothing listens on it.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// TelemetryConfig controls OpenTelemetry OTLP trace export for the
// Core boot/shutdown phase spans.
type TelemetryConfig struct {
	// Enabled controls whether boot-phase spans are exported.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure selects a non-TLS OTLP connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling rate, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// ZoneDef names a single Memory Manager zone to create at boot.
type ZoneDef struct {
	// Name identifies the zone (e.g. "system", "application").
	Name string `mapstructure:"name" validate:"required" yaml:"name"`

	// BudgetBytes is the zone's soft byte budget; 0 is unbounded.
	BudgetBytes int `mapstructure:"budget_bytes" validate:"gte=0" yaml:"budget_bytes"`

	// PurgeThresholdBytes, if nonzero, is the used-byte level at
	// which cmd/toolboxd's zone monitor calls CompactMem proactively
	// instead of waiting for an allocation to fail.
	PurgeThresholdBytes int `mapstructure:"purge_threshold_bytes" validate:"gte=0" yaml:"purge_threshold_bytes"`
}

// ZonesConfig defines the zones created during the memory boot phase.
type ZonesConfig struct {
	System      ZoneDef   `mapstructure:"system" yaml:"system"`
	Application ZoneDef   `mapstructure:"application" yaml:"application"`
	Extra       []ZoneDef `mapstructure:"extra" yaml:"extra,omitempty"`
}

// ResourceFileDef names one resource file to open during the
// resource boot phase.
type ResourceFileDef struct {
	// Name is the resource file's display name.
	Name string `mapstructure:"name" validate:"required" yaml:"name"`

	// Path is the backing file on the host filesystem. Opened with a
	// resource.FileBlockDevice.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// ReadOnly opens the file for reading only.
	ReadOnly bool `mapstructure:"read_only" yaml:"read_only"`

	// System marks this file as the system resource file, searched
	// last by GetResource.
	System bool `mapstructure:"system" yaml:"system"`
}

// ResourceChainConfig lists the resource files opened at boot, in
// search order, and which one is the system file.
type ResourceChainConfig struct {
	// CacheCapacity bounds the decompression cache's entry count.
	CacheCapacity int `mapstructure:"cache_capacity" validate:"omitempty,gt=0" yaml:"cache_capacity"`

	// Files lists the resource files to open, in chain order.
	Files []ResourceFileDef `mapstructure:"files" yaml:"files,omitempty"`
}

// ExtensionConfig controls the Extension/Segment Loader scan.
type ExtensionConfig struct {
	// ScanKinds lists which extension kinds to scan for and load at
	// boot: INIT, CDEF, DRVR, FKEY, WDEF, LDEF, MDEF.
	ScanKinds []string `mapstructure:"scan_kinds" yaml:"scan_kinds,omitempty"`

	// AutoLoadEnabled controls whether Core.Boot scans and loads
	// extensions at all, or leaves the registry empty for a caller
	// to populate manually.
	AutoLoadEnabled bool `mapstructure:"auto_load_enabled" yaml:"auto_load_enabled"`

	// DebugMode sets the Extension Registry's debug-mode flag (see
	// extension.Registry.SetDebugMode). Extension init durations are
	// logged at Debug level whatever its value.
	DebugMode bool `mapstructure:"debug_mode" yaml:"debug_mode"`

	// RequiredNames lists extensions that must load and initialize
	// successfully, each written as "TYPE:id" (e.g. "INIT:128"), the
	// form cmd/toolboxd matches; see StrictMode.
	RequiredNames []string `mapstructure:"required_names" yaml:"required_names,omitempty"`

	// StrictMode wires the "required-extension failure" open
	// question: when true, a Required extension's load/init failure
	// additionally unloads already-activated extensions of the same
	// kind in LIFO order.
	StrictMode bool `mapstructure:"strict_mode" yaml:"strict_mode"`

	// ReserveUnitsUntilReboot wires the "DRVR unit reuse" open
	// question: when true, a freed DRVR unit slot is never reused
	// for the remainder of the process lifetime.
	ReserveUnitsUntilReboot bool `mapstructure:"reserve_units_until_reboot" yaml:"reserve_units_until_reboot"`
}

// AppleEventConfig controls the AppleEvent Manager.
type AppleEventConfig struct {
	// SendTimeoutTicks is a send timeout in 60Hz ticks. core.Config
	// has no matching field, so the value does not reach the
	// AppleEvent Manager.
	SendTimeoutTicks uint64 `mapstructure:"send_timeout_ticks" validate:"omitempty,gt=0" yaml:"send_timeout_ticks"`

	// RecordingCapacity bounds the circular recording log's entry
	// count; see appleevent.NewRecorder.
	RecordingCapacity int `mapstructure:"recording_capacity" validate:"omitempty,gt=0" yaml:"recording_capacity"`

	// InteractionAllowed is a default for the AppleEvent Manager's
	// interaction-allowed flag. core.Config has no matching field, so
	// the value does not reach the manager.
	InteractionAllowed bool `mapstructure:"interaction_allowed" yaml:"interaction_allowed"`
}

// Load reads configuration from configPath (or the default search
// path when empty), applies environment overrides, fills defaults,
// and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !found {
		cfg := DefaultConfig()
		return &cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-facing error with
// setup instructions when no config file exists at the requested
// location.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"create one there, or point at one with:\n  toolboxd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as
// needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper wires environment variable binding and config file
// search per the TOOLBOX7_<SECTION>_<KEY> convention.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("TOOLBOX7")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// durationDecodeHook converts string/numeric values to time.Duration
// for any future duration-typed fields.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory, preferring
// XDG_CONFIG_HOME, falling back to ~/.config, then the current
// directory.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "toolbox7")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "toolbox7")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir exposes the configuration directory.
func GetConfigDir() string {
	return getConfigDir()
}

// validatorInstance is shared across Validate calls; go-playground's
// validator.Validate is safe for concurrent use once built.
var validatorInstance = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	return validatorInstance.Struct(cfg)
}
