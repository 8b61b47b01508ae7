// Command toolboxd boots a toolbox7 Core and exposes inspection and
// control subcommands over it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "toolboxd",
	Short: "toolbox7 - classic Macintosh toolbox runtime core",
	Long: `toolboxd boots a toolbox7 Core (Memory Manager, Resource Manager,
Extension/Segment Loader, AppleEvent Manager) and exposes its state
over a small set of inspection and control subcommands.

Use "toolboxd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/toolbox7/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(resourceCmd)
	rootCmd.AddCommand(extensionCmd)
	rootCmd.AddCommand(aeventCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("toolboxd %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
