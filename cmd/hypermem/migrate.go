package main

import (
	"fmt"

	"github.com/spf13/cobra"

	// Drivers selectable through -driver.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hypermem/hypermem-go/pkg/migration"
)

var (
	migrateDriver    string
	migrateDSN       string
	migrateTable     string
	migrateColumns   []string
	migrateLayer     int
	migrateAmplitude float64
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import rows from a relational table as memories",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDriver, "driver", "sqlite3", "database driver (sqlite3, mysql, postgres)")
	migrateCmd.Flags().StringVar(&migrateDSN, "dsn", "", "database connection string")
	migrateCmd.Flags().StringVar(&migrateTable, "table", "", "table to import")
	migrateCmd.Flags().StringSliceVar(&migrateColumns, "columns", nil, "text columns to concatenate per row")
	migrateCmd.Flags().IntVar(&migrateLayer, "layer", 1, "temporal layer for imported memories")
	migrateCmd.Flags().Float64Var(&migrateAmplitude, "amplitude", 0.8, "initial wave amplitude")
	_ = migrateCmd.MarkFlagRequired("dsn")
	_ = migrateCmd.MarkFlagRequired("table")
	_ = migrateCmd.MarkFlagRequired("columns")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	migrator := migration.New(client.Engine(), nil)
	report, err := migrator.FromSource(ctx, migration.Source{
		Driver:    migrateDriver,
		DSN:       migrateDSN,
		Table:     migrateTable,
		Columns:   migrateColumns,
		Layer:     migrateLayer,
		Amplitude: migrateAmplitude,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d rows, %d migrated, %d skipped\n",
		report.Table, report.Rows, report.Migrated, report.Skipped)

	return persist(ctx, client)
}
