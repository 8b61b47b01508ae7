// Package core composes the Memory Manager, Resource Manager,
// Extension/Segment Loader, and AppleEvent Manager behind a single
// value: one Core, never scattered singletons.
package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/paleotech/toolbox7/internal/logger"
	"github.com/paleotech/toolbox7/pkg/appleevent"
	"github.com/paleotech/toolbox7/pkg/bitspool"
	"github.com/paleotech/toolbox7/pkg/extension"
	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/menubits"
	"github.com/paleotech/toolbox7/pkg/platform"
	"github.com/paleotech/toolbox7/pkg/resource"
)

// Config controls the sizing and behavior of a Core's boot sequence.
type Config struct {
	SystemZoneBudget      int
	ApplicationZoneBudget int
	ResourceCacheCapacity int
	BitsPoolSlots         int
	BitsPoolSlotSize      int

	// StrictMode and ReserveUnitsUntilReboot select the rollback and
	// unit-reuse behavior documented in DESIGN.md.
	StrictMode              bool
	ReserveUnitsUntilReboot bool

	// AutoLoadEnabled controls whether Boot scans and loads
	// extensions at all; false leaves the registry empty for a
	// caller to populate with LoadByName/LoadByID.
	AutoLoadEnabled bool

	// DebugMode routes the Extension Registry's own debug-level
	// bookkeeping; see extension.Registry.SetDebugMode.
	DebugMode bool

	ScanKinds []extension.Kind
}

// DefaultConfig returns sensible sizing for a single boot.
func DefaultConfig() Config {
	return Config{
		SystemZoneBudget:      4 << 20,
		ApplicationZoneBudget: 16 << 20,
		ResourceCacheCapacity: 256,
		BitsPoolSlots:         16,
		BitsPoolSlotSize:      32 * 1024,
		AutoLoadEnabled:       true,
		ScanKinds: []extension.Kind{
			extension.KindDRVR,
			extension.KindINIT,
			extension.KindCDEF,
			extension.KindWDEF,
			extension.KindMDEF,
			extension.KindLDEF,
			extension.KindFKEY,
		},
	}
}

// Core is the process-wide composition of every toolbox subsystem.
type Core struct {
	mu sync.RWMutex

	cfg   Config
	ticks platform.TickSource

	zones       *memmgr.Stack
	SystemZone  *memmgr.Zone
	AppZone     *memmgr.Zone
	Resources   *resource.Manager
	Extensions  *extension.Registry
	Loader      *extension.Loader
	AppleEvents *appleevent.Manager
	BitsPool    *bitspool.Pool
	MenuBits    *menubits.Manager

	tracer    trace.Tracer
	bootPhase *prometheus.HistogramVec

	booted bool
}

// New constructs a Core. resolver supplies extension entry points
// (see extension.EntryResolver); fb may be nil when no framebuffer is
// available, but MenuBits.Save and Restore read the framebuffer and
// panic when it is nil.
func New(cfg Config, ticks platform.TickSource, resolver extension.EntryResolver, fb *platform.FrameBuffer) *Core {
	bootPhase := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "toolbox7",
		Subsystem: "core",
		Name:      "boot_phase_duration_seconds",
		Help:      "Duration of each Core boot/shutdown phase.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})

	c := &Core{
		cfg:       cfg,
		ticks:     ticks,
		zones:     memmgr.NewStack(),
		tracer:    otel.Tracer("toolbox7/core"),
		bootPhase: bootPhase,
	}

	c.SystemZone, _ = c.zones.PushZone("system", cfg.SystemZoneBudget)
	c.AppZone, _ = c.zones.PushZone("application", cfg.ApplicationZoneBudget)

	c.Resources = resource.NewManager(c.SystemZone, cfg.ResourceCacheCapacity)
	c.Extensions = extension.NewRegistry()
	c.Extensions.SetReserveUnitsUntilReboot(cfg.ReserveUnitsUntilReboot)
	c.Extensions.SetAutoLoadEnabled(cfg.AutoLoadEnabled)
	c.Extensions.SetDebugMode(cfg.DebugMode)
	c.Loader = extension.NewLoader(c.Extensions, c.Resources, c.SystemZone, ticks, resolver)
	c.Loader.SetStrictMode(cfg.StrictMode)
	c.Loader.SetInitDurationObserver(func(kind extension.Kind, ticks uint64) {
		logger.Debug("extension init duration", "kind", kind.String(), "ticks", ticks)
	})

	c.AppleEvents = appleevent.New(c.AppZone, ticks)

	c.BitsPool = bitspool.New(cfg.BitsPoolSlots, cfg.BitsPoolSlotSize)
	c.MenuBits = menubits.New(c.BitsPool, c.AppZone, fb)

	return c
}

// RegisterMetrics registers Core's Prometheus collectors against reg.
// Safe to call at most once per registry; a duplicate registration
// (e.g. from constructing a second Core in the same process) is
// ignored: RegisterMetrics returns nil and the collector registered
// first stays in place.
func (c *Core) RegisterMetrics(reg prometheus.Registerer) error {
	if err := reg.Register(c.bootPhase); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

func (c *Core) observePhase(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "core.boot."+name, trace.WithAttributes(attribute.String("phase", name)))
	defer span.End()

	timer := prometheus.NewTimer(c.bootPhase.WithLabelValues(name))
	defer timer.ObserveDuration()

	logger.InfoCtx(ctx, "boot phase starting", "phase", name)
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		logger.ErrorCtx(ctx, "boot phase failed", "phase", name, "error", err)
		return fmt.Errorf("core: phase %s: %w", name, err)
	}
	logger.InfoCtx(ctx, "boot phase complete", "phase", name)
	return nil
}

// Boot runs the four-phase startup sequence A (Memory Manager zones,
// already live by construction) -> B (Resource Manager ready) -> C
// (Extension/Segment Loader scan+load for every configured kind) -> D
// (AppleEvent Manager ready to dispatch).
func (c *Core) Boot(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.booted {
		return fmt.Errorf("core: already booted")
	}

	if err := c.observePhase(ctx, "memory", func(ctx context.Context) error {
		return nil // zones are pushed during New; nothing further to do.
	}); err != nil {
		return err
	}

	if err := c.observePhase(ctx, "resource", func(ctx context.Context) error {
		return nil // manager is ready; system resource file open is a separate, optional call.
	}); err != nil {
		return err
	}

	if err := c.observePhase(ctx, "extension", func(ctx context.Context) error {
		if !c.cfg.AutoLoadEnabled {
			logger.InfoCtx(ctx, "extension auto-load disabled, registry left empty")
			return nil
		}
		for _, kind := range c.cfg.ScanKinds {
			c.Loader.ScanForExtensions(kind)
			if err := c.Loader.LoadAllExtensions(kind); !err.NoErr() {
				return fmt.Errorf("load %s extensions: %s", kind.String(), err.Error())
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := c.observePhase(ctx, "appleevent", func(ctx context.Context) error {
		return nil // coercion registry and handler tables are ready from New.
	}); err != nil {
		return err
	}

	c.booted = true
	return nil
}

// Shutdown tears down the subsystems in reverse boot order: D -> C ->
// B -> A.
func (c *Core) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.booted {
		return nil
	}

	_ = c.observePhase(ctx, "appleevent-teardown", func(ctx context.Context) error {
		if rec := c.AppleEvents.Recording(); rec != nil {
			_ = rec.CloseStore()
		}
		return nil
	})

	_ = c.observePhase(ctx, "extension-teardown", func(ctx context.Context) error {
		for i := len(c.cfg.ScanKinds) - 1; i >= 0; i-- {
			c.Loader.UnloadAll(c.cfg.ScanKinds[i])
		}
		return nil
	})

	_ = c.observePhase(ctx, "resource-teardown", func(ctx context.Context) error {
		// Open resource file refs are closed explicitly by callers
		// before Shutdown; nothing further to release here.
		return nil
	})

	_ = c.observePhase(ctx, "memory-teardown", func(ctx context.Context) error {
		c.zones.PopZone()
		c.zones.PopZone()
		return nil
	})

	c.booted = false
	return nil
}

// Booted reports whether Boot has completed successfully and
// Shutdown has not yet run.
func (c *Core) Booted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.booted
}
