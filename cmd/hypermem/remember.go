package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	rememberLayer     int
	rememberAmplitude float64
)

var rememberCmd = &cobra.Command{
	Use:   "remember <text>...",
	Short: "Store text as a new memory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemember,
}

func init() {
	rememberCmd.Flags().IntVar(&rememberLayer, "layer", 0, "temporal layer for the new memory")
	rememberCmd.Flags().Float64Var(&rememberAmplitude, "amplitude", 1.0, "initial wave amplitude")
}

func runRemember(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	text := strings.Join(args, " ")
	m, err := client.RememberAtLayer(ctx, text, rememberLayer, rememberAmplitude)
	if err != nil {
		return err
	}

	fmt.Printf("remembered %d", m.ID)
	if m.Category != "" {
		fmt.Printf(" [%s]", m.Category)
	}
	fmt.Printf(" (%d links, layer %d)\n", len(m.Links), m.Layer)

	return persist(ctx, client)
}
