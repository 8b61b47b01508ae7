package main

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/paleotech/toolbox7/pkg/core"
	"github.com/paleotech/toolbox7/pkg/extension"
)

var extensionCmd = &cobra.Command{
	Use:   "extension",
	Short: "Inspect and control the Extension/Segment Loader",
}

var extensionListCmd = &cobra.Command{
	Use:   "list",
	Short: "Boot a Core, run the configured extension scan, and list the registry",
	RunE:  runExtensionList,
}

var extensionLoadCmd = &cobra.Command{
	Use:   "load NAME",
	Short: "Boot a Core and load a single extension record by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtensionLoad,
}

var extensionDisableCmd = &cobra.Command{
	Use:   "disable REFNUM",
	Short: "Boot a Core and disable an extension record by reference number",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtensionDisable,
}

func init() {
	extensionCmd.AddCommand(extensionListCmd)
	extensionCmd.AddCommand(extensionLoadCmd)
	extensionCmd.AddCommand(extensionDisableCmd)
}

func bootForExtensions() (*core.Core, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	cc := coreConfigFrom(cfg)
	c := core.New(cc, newWallTicks(), newCLIResolver(cfg.Extension), nil)
	if err := c.Boot(context.Background()); err != nil {
		return nil, fmt.Errorf("boot failed: %w", err)
	}
	return c, nil
}

func runExtensionList(cmd *cobra.Command, args []string) error {
	c, err := bootForExtensions()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"RefNum", "Name", "Kind", "State", "Priority", "Unit", "Required"})
	for _, rec := range c.Extensions.List() {
		table.Append([]string{
			fmt.Sprint(rec.RefNum),
			rec.Name,
			rec.Kind.String(),
			rec.State.String(),
			fmt.Sprint(rec.Priority),
			fmt.Sprint(rec.Unit),
			fmt.Sprint(rec.Required),
		})
	}
	table.Render()
	return nil
}

func runExtensionLoad(cmd *cobra.Command, args []string) error {
	c, err := bootForExtensions()
	if err != nil {
		return err
	}
	if osErr := c.Loader.LoadByName(args[0]); !osErr.NoErr() {
		return fmt.Errorf("loading %s: %s", args[0], osErr.Error())
	}
	fmt.Printf("loaded %s\n", args[0])
	return nil
}

func runExtensionDisable(cmd *cobra.Command, args []string) error {
	c, err := bootForExtensions()
	if err != nil {
		return err
	}
	var refNum int
	if _, scanErr := fmt.Sscanf(args[0], "%d", &refNum); scanErr != nil {
		return fmt.Errorf("invalid ref num %q: %w", args[0], scanErr)
	}
	if !c.Extensions.SetEnabled(extension.RefNum(refNum), false) {
		return fmt.Errorf("no extension record with ref num %d", refNum)
	}
	fmt.Printf("disabled ref num %d\n", refNum)
	return nil
}
