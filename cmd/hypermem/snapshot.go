package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the store to its snapshot file",
	Args:  cobra.NoArgs,
	RunE:  runSave,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Verify the snapshot file loads cleanly",
	Args:  cobra.NoArgs,
	RunE:  runLoad,
}

func runSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.Save(ctx); err != nil {
		return err
	}
	fmt.Printf("saved %d memories\n", client.Count())
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// newClient already loads the snapshot; this command exists to verify
	// a snapshot explicitly and report what it holds.
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	fmt.Printf("loaded %d memories\n", client.Count())
	return nil
}
