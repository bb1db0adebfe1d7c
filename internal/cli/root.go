package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stratum",
	Short: "Tiered knowledge routing and storage",
	Long:  "Stratum routes learned content into hot/warm/cold storage tiers, links it into a semantic knowledge graph, and rebalances placement from observed access patterns. Single Go binary.",
}

// configPath is shared by all subcommands.
var configPath string

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(optimizeCmd)
}
