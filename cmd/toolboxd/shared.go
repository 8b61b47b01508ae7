package main

import (
	"fmt"
	"time"

	"github.com/paleotech/toolbox7/internal/logger"
	"github.com/paleotech/toolbox7/pkg/config"
	"github.com/paleotech/toolbox7/pkg/core"
	"github.com/paleotech/toolbox7/pkg/extension"
	"github.com/paleotech/toolbox7/pkg/resource"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
)

// loadConfig loads configuration from the --config flag, falling
// back to defaults when no file exists.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// initLogger wires internal/logger from the loaded LoggingConfig.
func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// wallTicks is the CLI's platform.TickSource: a 60Hz wall-clock
// approximation, since a CLI process has no VBL interrupt to count.
type wallTicks struct{ start time.Time }

func newWallTicks() *wallTicks { return &wallTicks{start: time.Now()} }

func (w *wallTicks) Ticks() uint64 {
	return uint64(time.Since(w.start) / (time.Second / 60))
}

// cliResolver resolves discovered code resources to stub entry
// points. toolboxd is an inspection CLI, not a classic Mac OS
// process, so it has no native code segments to jump into; it treats
// every discovered resource of a registered kind as resolvable,
// returning a no-op proc of the right shape so the Loader's
// load/init/activate state machine runs for real. A resource is marked
// Required when its "TYPE:id" string (see nameForID) is listed in
// ExtensionConfig.RequiredNames.
type cliResolver struct {
	required map[string]bool
}

func newCLIResolver(cfg config.ExtensionConfig) *cliResolver {
	required := make(map[string]bool, len(cfg.RequiredNames))
	for _, n := range cfg.RequiredNames {
		required[n] = true
	}
	return &cliResolver{required: required}
}

func (r *cliResolver) ResolveEntry(kind extension.Kind, t resource.Type, id resource.ID) (any, int, bool, uint8, uint8, bool) {
	var entry any
	switch kind {
	case extension.KindINIT:
		entry = extension.InitProc(func() toolboxerr.OSErr { return toolboxerr.NoErr })
	case extension.KindDRVR:
		entry = extension.DRVRProc(func(unit int, code int16, pb []byte) toolboxerr.OSErr { return toolboxerr.NoErr })
	case extension.KindCDEF:
		entry = extension.CDEFProc(func(varCode int16, ctrl uintptr, msg int16, param int32) int16 { return 0 })
	default:
		entry = extension.OpaqueProc(func(args ...any) any { return nil })
	}
	return entry, 0, r.required[nameForID(t, id)], 1, 0, true
}

// nameForID formats (t, id) as "TYPE:id" (e.g. "INIT:128"), the only
// form matched against ExtensionConfig.RequiredNames. Resource names
// from the resource map are never consulted.
func nameForID(t resource.Type, id resource.ID) string {
	return fmt.Sprintf("%s:%d", t.String(), id)
}

// coreConfigFrom translates the loaded pkg/config.Config into a
// core.Config.
func coreConfigFrom(cfg *config.Config) core.Config {
	cc := core.DefaultConfig()
	cc.SystemZoneBudget = cfg.Zones.System.BudgetBytes
	cc.ApplicationZoneBudget = cfg.Zones.Application.BudgetBytes
	cc.ResourceCacheCapacity = cfg.ResourceChain.CacheCapacity
	cc.StrictMode = cfg.Extension.StrictMode
	cc.ReserveUnitsUntilReboot = cfg.Extension.ReserveUnitsUntilReboot
	cc.AutoLoadEnabled = cfg.Extension.AutoLoadEnabled
	cc.DebugMode = cfg.Extension.DebugMode
	cc.ScanKinds = scanKindsFromNames(cfg.Extension.ScanKinds)
	return cc
}

func scanKindsFromNames(names []string) []extension.Kind {
	kinds := make([]extension.Kind, 0, len(names))
	for _, n := range names {
		if k, ok := parseKind(n); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func parseKind(s string) (extension.Kind, bool) {
	switch s {
	case "INIT":
		return extension.KindINIT, true
	case "CDEF":
		return extension.KindCDEF, true
	case "DRVR":
		return extension.KindDRVR, true
	case "FKEY":
		return extension.KindFKEY, true
	case "WDEF":
		return extension.KindWDEF, true
	case "LDEF":
		return extension.KindLDEF, true
	case "MDEF":
		return extension.KindMDEF, true
	default:
		return 0, false
	}
}
