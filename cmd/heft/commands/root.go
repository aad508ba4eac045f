package commands

import (
	"github.com/spf13/cobra"

	"github.com/heftdb/heft/internal/debug"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "heft",
	Short:   "Compile criteria objects into parameterized PostgreSQL statements",
	Version: version,
	Long: `heft compiles criteria objects against a catalog snapshot into
parameterized PostgreSQL statements. It never talks to a database: the
compiled SQL and its parameter list are printed for a driver to execute.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var debugFlag bool

func init() {
	rootCmd.PersistentFlags().StringVarP(&snapshotPath, "snapshot", "s", "", "Path to the catalog snapshot JSON (default from config)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debugFlag {
			debug.Init(true)
		}
	}
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
