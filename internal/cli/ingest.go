package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/stratum/internal/knowledge"
	"github.com/spf13/cobra"
)

var (
	ingestKind   string
	ingestSource string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [content]",
	Short: "Route a piece of content into the knowledge store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestKind, "kind", "factual", "knowledge kind (academic, experiential, conversational, procedural, factual, contextual, temporal, semantic, synthetic)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "provenance marker")
}

func runIngest(cmd *cobra.Command, args []string) error {
	kind, err := knowledge.ParseKind(ingestKind)
	if err != nil {
		return err
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := rt.engine.Route(ctx, strings.Join(args, " "), kind, ingestSource, nil)
	if err != nil {
		return fmt.Errorf("route: %w", err)
	}

	fmt.Println(id)
	return nil
}
