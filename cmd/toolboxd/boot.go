package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/paleotech/toolbox7/internal/logger"
	"github.com/paleotech/toolbox7/pkg/config"
	"github.com/paleotech/toolbox7/pkg/core"
	"github.com/paleotech/toolbox7/pkg/memmgr"
)

var bootForeground bool

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Boot a Core and hold it open until interrupted",
	Long: `boot constructs a Core from the loaded configuration, runs the
A->B->C->D boot sequence (memory zones, resource manager, extension
scan/load, apple event manager), and waits for SIGINT/SIGTERM before
running the reverse D->C->B->A shutdown sequence.`,
	RunE: runBoot,
}

func init() {
	bootCmd.Flags().BoolVarP(&bootForeground, "foreground", "f", true, "stay resident until interrupted")
}

func runBoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogger(cfg); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	cc := coreConfigFrom(cfg)
	c := core.New(cc, newWallTicks(), newCLIResolver(cfg.Extension), nil)

	if cfg.Metrics.Enabled {
		if err := c.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Boot(ctx); err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}
	logger.Info("core booted",
		"extensions_active", c.Extensions.ActiveCount(),
		"scan_kinds", len(cc.ScanKinds))

	if !bootForeground {
		return c.Shutdown(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	fmt.Println("toolboxd booted. Press Ctrl+C to shut down.")

	monitorDone := make(chan struct{})
	go monitorZones(ctx, c, cfg, monitorDone)

	<-sigCh
	signal.Stop(sigCh)
	cancel()
	<-monitorDone

	logger.Info("shutdown signal received")
	if err := c.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("core shut down cleanly")
	return nil
}

// monitorZones periodically compacts a zone once its used bytes
// cross the configured purge threshold, wiring
// ZonesConfig.PurgeThresholdBytes into actual runtime behavior
// instead of leaving it purely informational.
func monitorZones(ctx context.Context, c *core.Core, cfg *config.Config, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	checks := []struct {
		zone      *memmgr.Zone
		threshold int
	}{
		{c.SystemZone, cfg.Zones.System.PurgeThresholdBytes},
		{c.AppZone, cfg.Zones.Application.PurgeThresholdBytes},
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, chk := range checks {
				if chk.threshold <= 0 {
					continue
				}
				if chk.zone.Used() >= chk.threshold {
					logger.Info("zone crossed purge threshold, compacting",
						logger.Zone(chk.zone.Name()), logger.Used(chk.zone.Used()))
					chk.zone.CompactMem(0)
				}
			}
		}
	}
}
