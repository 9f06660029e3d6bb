package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/buildinfo"
)

// NewRootCommand builds the anj command tree.
func NewRootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:     "anj",
		Short:   "Digitize receipts and invoices into structured bills",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (plain \"key value\" lines)")

	rootCmd.AddCommand(
		newServeCommand(&configFile),
		newParseCommand(&configFile),
		newHistoryCommand(&configFile),
		newExportCommand(&configFile),
		newPDFCommand(&configFile),
		newClearCommand(&configFile),
	)
	return rootCmd
}
