package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dreamCmd = &cobra.Command{
	Use:   "dream",
	Short: "Run consolidation cycles over the store",
	Args:  cobra.NoArgs,
	RunE:  runDream,
}

func runDream(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	report := client.Dream()

	for i, cycle := range report.Cycles {
		fmt.Printf("cycle %d: replayed %d, bundled %d, strengthened %d, pruned %d, transferred %d, wired %d, hallucinated %d\n",
			i+1, cycle.MemoriesReplayed, cycle.BundlesCreated, cycle.MemoriesStrengthened,
			cycle.MemoriesPruned, cycle.MemoriesTransferred, cycle.LinksCreated, cycle.Hallucinations)
	}
	fmt.Printf("phi %.4f -> %.4f (%s -> %s)\n",
		report.Before.Phi, report.After.Phi, report.Before.Level, report.After.Level)
	if report.Emerged {
		fmt.Println("integration level rose")
	}

	return persist(ctx, client)
}
