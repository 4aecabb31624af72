package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hypermem/hypermem-go/pkg/integration"
)

var statsFull bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the integration state of the store",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsFull, "full", false, "print the full system report")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if statsFull {
		fmt.Print(integration.Format(client.Health()))
		return nil
	}

	state := client.Stats()
	fmt.Printf("memories:  %d (%d active)\n", state.TotalMemories, state.ActiveMemories)
	fmt.Printf("links:     %d\n", state.TotalLinks)
	fmt.Printf("clusters:  %d (mean order %.3f)\n", state.Clusters, state.MeanOrder)
	fmt.Printf("phi:       %.4f\n", state.Phi)
	fmt.Printf("xi:        %.4f\n", state.Xi)
	fmt.Printf("level:     %s\n", state.Level)
	return nil
}
