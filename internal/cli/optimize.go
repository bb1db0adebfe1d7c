package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var optimizeDrain bool

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run one access-pattern optimization pass",
	RunE:  runOptimize,
}

func init() {
	optimizeCmd.Flags().BoolVar(&optimizeDrain, "drain", false, "also drain the sync queue to the archive")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	rep, err := rt.engine.Optimize()
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	fmt.Printf("promoted: %d  demoted: %d  archived: %d  evicted: %d  edges pruned: %d  reclaimed: %dB\n",
		rep.Promoted, rep.Demoted, rep.Archived, rep.Evicted, rep.EdgesPruned, rep.ReclaimedBytes)

	if optimizeDrain {
		synced, requeued := rt.engine.Queue().Drain(rt.archiver)
		fmt.Printf("synced: %d  requeued: %d\n", synced, requeued)
	}
	return nil
}
