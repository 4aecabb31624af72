package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var recallTopK int

var recallCmd = &cobra.Command{
	Use:   "recall <query>...",
	Short: "Retrieve the memories most relevant to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecall,
}

func init() {
	recallCmd.Flags().IntVarP(&recallTopK, "top", "k", 10, "maximum number of results")
}

func runRecall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	results, err := client.Recall(ctx, strings.Join(args, " "), recallTopK)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no memories found")
		return nil
	}

	for i, r := range results {
		marker := " "
		if r.Expanded {
			marker = "~"
		}
		fmt.Printf("%2d.%s [%.3f] L%d %s\n", i+1, marker, r.Score, r.Layer, r.Content)
	}
	return nil
}
