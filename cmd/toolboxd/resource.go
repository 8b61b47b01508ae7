package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/paleotech/toolbox7/pkg/core"
	"github.com/paleotech/toolbox7/pkg/resource"
)

var resourceCmd = &cobra.Command{
	Use:   "resource",
	Short: "Inspect the Resource Manager",
}

var resourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the resource files configured for the chain",
	RunE:  runResourceList,
}

var resourceDumpCmd = &cobra.Command{
	Use:   "dump TYPE",
	Short: "Dump every resource of the given 4-character type from the open chain",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceDump,
}

func init() {
	resourceCmd.AddCommand(resourceListCmd)
	resourceCmd.AddCommand(resourceDumpCmd)
}

// bootResourceManager builds a Core from config and opens every file
// named in ResourceChainConfig, returning the Core and a closer.
func bootResourceManager() (*core.Core, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := initLogger(cfg); err != nil {
		return nil, nil, err
	}

	cc := coreConfigFrom(cfg)
	c := core.New(cc, newWallTicks(), newCLIResolver(cfg.Extension), nil)

	var devices []*resource.FileBlockDevice
	closeAll := func() {
		for _, d := range devices {
			_ = d.Close()
		}
	}

	for _, f := range cfg.ResourceChain.Files {
		dev, err := resource.OpenFileBlockDevice(f.Path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("opening resource file %s: %w", f.Name, err)
		}
		devices = append(devices, dev)

		perm := resource.ReadOnly
		if !f.ReadOnly {
			perm = resource.ReadWrite
		}
		if _, osErr := c.Resources.OpenResFile(f.Name, dev, 0, perm, f.System); !osErr.NoErr() {
			closeAll()
			return nil, nil, fmt.Errorf("opening resource file %s: %s", f.Name, osErr.Error())
		}
	}

	return c, closeAll, nil
}

func runResourceList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Name", "Path", "ReadOnly", "System"})
	for _, f := range cfg.ResourceChain.Files {
		table.Append([]string{f.Name, f.Path, fmt.Sprint(f.ReadOnly), fmt.Sprint(f.System)})
	}
	table.Render()
	return nil
}

func runResourceDump(cmd *cobra.Command, args []string) error {
	c, closeAll, err := bootResourceManager()
	if err != nil {
		return err
	}
	defer closeAll()

	t := resource.NewType(args[0])
	count := c.Resources.CountResources(t)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Index", "Type", "Bytes"})
	for i := 0; i < count; i++ {
		h, osErr := c.Resources.GetIndResource(t, i+1)
		if !osErr.NoErr() {
			continue
		}
		table.Append([]string{fmt.Sprint(i + 1), t.String(), fmt.Sprint(len(h.Zone().Bytes(h)))})
	}
	table.Render()
	return nil
}
